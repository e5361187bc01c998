package analytics

import "achievekit/core"

// BridgeHook bridges an event source to multiple hooks.
type BridgeHook struct{ hooks []Hook }

func NewBridge(hooks ...Hook) *BridgeHook { return &BridgeHook{hooks: hooks} }

func (b *BridgeHook) OnEvent(e core.Event) {
	for _, h := range b.hooks {
		h.OnEvent(e)
	}
}

// HookFunc adapts a function to Hook.
type HookFunc func(core.Event)

func (f HookFunc) OnEvent(e core.Event) { f(e) }
