// Package digest provides integrity hash adapters for persisted achievement
// state. None of them are a security boundary on their own: anyone able to
// edit the store can recompute an unkeyed digest.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Algorithm names accepted by ByName.
const (
	AlgorithmFNV1a  = "fnv1a"
	AlgorithmXXHash = "xxhash"
	AlgorithmSHA256 = "sha256"
)

// FNV1a is the default 32-bit FNV-1a digest rendered as unpadded lowercase hex.
type FNV1a struct{}

func (FNV1a) Hash(data string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(data))
	return strconv.FormatUint(uint64(h.Sum32()), 16)
}

// XXHash is a 64-bit xxHash digest; faster and wider than FNV-1a.
type XXHash struct{}

func (XXHash) Hash(data string) string {
	return strconv.FormatUint(xxhash.Sum64String(data), 16)
}

// SHA256 is a cryptographic digest for callers that want collision resistance.
type SHA256 struct{}

func (SHA256) Hash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// Hasher is satisfied by every adapter in this package.
type Hasher interface {
	Hash(data string) string
}

// ByName resolves a configured algorithm name. Empty selects FNV-1a.
func ByName(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AlgorithmFNV1a:
		return FNV1a{}, nil
	case AlgorithmXXHash:
		return XXHash{}, nil
	case AlgorithmSHA256:
		return SHA256{}, nil
	default:
		return nil, fmt.Errorf("unknown integrity algorithm %q", name)
	}
}
