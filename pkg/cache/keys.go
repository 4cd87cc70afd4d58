package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ProbeVersion is bumped whenever the stored probe record changes shape, so
// stale entries from older binaries become misses.
const ProbeVersion = 1

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// hashKey builds "prefix:sha256(json(parts))".
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return fmt.Sprintf("%s:%s", prefix, Hash(data))
}

// Keyer builds cache keys.
type Keyer interface {
	ProbeKey(url string) string
}

// DefaultKeyer builds unprefixed keys.
type DefaultKeyer struct{}

// ProbeKey returns the key for the probe result of url.
func (DefaultKeyer) ProbeKey(url string) string {
	return hashKey("probe", ProbeVersion, url)
}

// ScopedKeyer prefixes every key, so several deployments can share one
// Redis or MongoDB instance.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (DefaultKeyer when nil) with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = DefaultKeyer{}
	}
	if prefix == "" {
		return inner
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// ProbeKey returns the prefixed probe key.
func (k *ScopedKeyer) ProbeKey(url string) string {
	return k.prefix + k.inner.ProbeKey(url)
}

// ProbeKey is DefaultKeyer{}.ProbeKey.
func ProbeKey(url string) string { return DefaultKeyer{}.ProbeKey(url) }
