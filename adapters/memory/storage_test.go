package memory

import (
	"testing"
)

func TestMemoryStore(t *testing.T) {
	s := New()
	if _, ok := s.Get("unlocked"); ok {
		t.Fatal("expected missing key")
	}
	s.Set("unlocked", `["basic"]`)
	s.Set("unlocked:hash", "abc")
	v, ok := s.Get("unlocked")
	if !ok || v != `["basic"]` {
		t.Fatalf("got %q %v", v, ok)
	}
	if keys := s.Keys(); len(keys) != 2 || keys[0] != "unlocked" {
		t.Fatalf("unexpected keys %v", keys)
	}
	s.Remove("unlocked")
	s.Remove("never-set")
	if _, ok := s.Get("unlocked"); ok {
		t.Fatal("expected key removed")
	}
}

func TestNewWithCopiesSeed(t *testing.T) {
	seed := map[string]string{"progress": "{}"}
	s := NewWith(seed)
	seed["progress"] = "changed"
	if v, _ := s.Get("progress"); v != "{}" {
		t.Fatalf("seed leaked into store: %q", v)
	}
	snap := s.Snapshot()
	snap["progress"] = "mutated"
	if v, _ := s.Get("progress"); v != "{}" {
		t.Fatalf("snapshot leaked into store: %q", v)
	}
}
