// Package runtimekey derives the stable RuntimeKey identity for an
// AliasSpec: the tuple that determines whether two catalog entries
// share one loaded model instance.
package runtimekey

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/tidwall/gjson"
)

// HashAlgoVersion identifies the options canonicalization and digest
// scheme behind Key.OptionsHash: canonicalize's byte form hashed with
// xxhash.Sum64.
const HashAlgoVersion = 1

// Task is the closed set of capabilities an AliasSpec may request.
type Task string

// Supported tasks.
const (
	TaskEmbed    Task = "embed"
	TaskRerank   Task = "rerank"
	TaskGenerate Task = "generate"
)

// Spec carries the subset of AliasSpec fields that determine model
// identity. internal/runtime builds this from the richer AliasSpec.
type Spec struct {
	Task       Task
	ProviderID string
	ModelID    string
	Revision   string

	// OptionsJSON is the raw JSON bytes of the provider-specific options
	// tree, or nil when the spec carries no options. It is canonicalized
	// and hashed by KeyOf; callers never need to pre-normalize it.
	OptionsJSON []byte
}

// Key is the tuple identity described by §3: two specs that agree on
// every field share one loaded instance.
type Key struct {
	Task        Task
	ProviderID  string
	ModelID     string
	Revision    string
	OptionsHash uint64
}

// String renders the key for logs and map-debugging; it is not part of
// the hash contract.
func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%016x", k.Task, k.ProviderID, k.ModelID, k.Revision, k.OptionsHash)
}

// Deriver computes RuntimeKeys, memoizing the canonicalization+hash step
// for repeated options trees. The zero value is unusable; construct
// with New or NewWithCache.
type Deriver struct {
	cache *ristretto.Cache[string, uint64]
}

// New builds a Deriver backed by a small Ristretto cache sized for
// memoizing option-tree digests (not for caching LoadedInstances, which
// the registry never evicts).
func New() (*Deriver, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, uint64]{
		NumCounters: 100_000,
		MaxCost:     8 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("runtimekey: failed to create digest cache: %w", err)
	}
	return &Deriver{cache: c}, nil
}

// Close releases the Deriver's digest cache.
func (d *Deriver) Close() {
	if d.cache != nil {
		d.cache.Close()
	}
}

// KeyOf derives the RuntimeKey for spec. It is deterministic: equal
// specs (including byte-equivalent-after-canonicalization options
// trees) always yield equal keys, in-process and across restarts.
func (d *Deriver) KeyOf(spec Spec) Key {
	return Key{
		Task:        spec.Task,
		ProviderID:  spec.ProviderID,
		ModelID:     spec.ModelID,
		Revision:    spec.Revision,
		OptionsHash: d.optionsHash(spec.OptionsJSON),
	}
}

// optionsHash canonicalizes spec's options JSON and returns its 64-bit
// digest, consulting (and populating) the memoization cache keyed by
// the raw input bytes.
func (d *Deriver) optionsHash(raw []byte) uint64 {
	// Absent options must hash distinctly from an empty object: use the
	// raw bytes (including the nil/empty distinction) as the cache key,
	// canonicalizing only once per distinct input.
	cacheKey := string(raw)

	if d.cache != nil {
		if v, ok := d.cache.Get(cacheKey); ok {
			return v
		}
	}

	canon := canonicalize(raw)
	digest := xxhash.Sum64(canon)

	if d.cache != nil {
		d.cache.Set(cacheKey, digest, int64(len(cacheKey)))
	}

	return digest
}

// canonicalize rewrites an arbitrary JSON options tree into a
// deterministic byte form: object keys sorted lexicographically at
// every level, arrays preserved in order, numbers normalized to a
// stable textual form, and an explicit sentinel for absent options so
// it never collides with an empty object.
func canonicalize(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("\x00absent\x00")
	}

	parsed := gjson.ParseBytes(raw)
	if !parsed.Exists() {
		return []byte("\x00absent\x00")
	}

	var buf []byte
	buf = appendCanonical(buf, parsed)
	return buf
}

func appendCanonical(buf []byte, v gjson.Result) []byte {
	switch {
	case v.IsObject():
		buf = append(buf, '{')
		type entry struct {
			key string
			val gjson.Result
		}
		entries := make([]entry, 0)
		v.ForEach(func(key, val gjson.Result) bool {
			entries = append(entries, entry{key: key.String(), val: val})
			return true
		})
		sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
		for i, e := range entries {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, strconv.Quote(e.key)...)
			buf = append(buf, ':')
			buf = appendCanonical(buf, e.val)
		}
		buf = append(buf, '}')
	case v.IsArray():
		buf = append(buf, '[')
		for i, elem := range v.Array() {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendCanonical(buf, elem)
		}
		buf = append(buf, ']')
	case v.Type == gjson.Number:
		buf = append(buf, normalizeNumber(v.Raw)...)
	case v.Type == gjson.String:
		buf = append(buf, strconv.Quote(v.String())...)
	case v.Type == gjson.True, v.Type == gjson.False:
		buf = append(buf, v.Raw...)
	case v.Type == gjson.Null:
		buf = append(buf, "null"...)
	default:
		buf = append(buf, v.Raw...)
	}
	return buf
}

// normalizeNumber renders a JSON number in a stable textual form so
// "1", "1.0", and "1e0" hash identically.
func normalizeNumber(raw string) string {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return strconv.FormatInt(i, 10)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
