package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/samber/mo"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/modelrt/modelrt/internal/runtimekey"
)

// wireAliasSpec mirrors the §6.2 JSON shape of one catalog entry.
// Optional fields use pointers so an absent JSON key is distinguishable
// from an explicit zero value before conversion into mo.Option[T].
type wireAliasSpec struct {
	Alias       string          `json:"alias"`
	Task        string          `json:"task"`
	ProviderID  string          `json:"provider_id"`
	ModelID     string          `json:"model_id"`
	Revision    *string         `json:"revision"`
	Warmup      string          `json:"warmup"`
	Required    bool            `json:"required"`
	Timeout     *int            `json:"timeout"`
	LoadTimeout *int            `json:"load_timeout"`
	Retry       *wireRetry      `json:"retry"`
	Options     json.RawMessage `json:"options"`
}

type wireRetry struct {
	MaxAttempts      int `json:"max_attempts"`
	InitialBackoffMS int `json:"initial_backoff_ms"`
}

// ParseJSON decodes a §6.2 catalog JSON array into AliasSpec values.
// Entries omitting load_timeout have DefaultLoadTimeoutSeconds injected
// via sjson before the final unmarshal, the same rewrite-then-parse
// shape the teacher uses for request bodies.
func ParseJSON(raw []byte) ([]AliasSpec, error) {
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("catalog: JSON document must be an array of alias entries")
	}

	entries := parsed.Array()
	specs := make([]AliasSpec, 0, len(entries))
	for i, entry := range entries {
		entryBytes := []byte(entry.Raw)
		if !entry.Get("load_timeout").Exists() {
			rewritten, err := sjson.SetBytes(entryBytes, "load_timeout", DefaultLoadTimeoutSeconds)
			if err != nil {
				return nil, fmt.Errorf("catalog: entry %d: injecting default load_timeout: %w", i, err)
			}
			entryBytes = rewritten
		}

		var wire wireAliasSpec
		if err := json.Unmarshal(entryBytes, &wire); err != nil {
			return nil, fmt.Errorf("catalog: entry %d: %w", i, err)
		}

		spec, err := wire.toAliasSpec()
		if err != nil {
			return nil, fmt.Errorf("catalog: entry %d: %w", i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (w wireAliasSpec) toAliasSpec() (AliasSpec, error) {
	spec := AliasSpec{
		Alias:       w.Alias,
		Task:        runtimekey.Task(w.Task),
		ProviderID:  w.ProviderID,
		ModelID:     w.ModelID,
		Required:    w.Required,
		LoadTimeout: DefaultLoadTimeoutSeconds,
	}

	if w.Revision != nil {
		spec.Revision = mo.Some(*w.Revision)
	}
	if w.Timeout != nil {
		spec.Timeout = mo.Some(*w.Timeout)
	}
	if w.LoadTimeout != nil {
		spec.LoadTimeout = *w.LoadTimeout
	}
	if w.Retry != nil {
		spec.Retry = mo.Some(RetryConfig{
			MaxAttempts:      w.Retry.MaxAttempts,
			InitialBackoffMS: w.Retry.InitialBackoffMS,
		})
	}
	if len(w.Options) > 0 && string(w.Options) != "null" {
		spec.Options = []byte(w.Options)
	}

	warmup, err := parseWarmupPolicy(w.Warmup)
	if err != nil {
		return AliasSpec{}, fmt.Errorf("alias %q: %w", w.Alias, err)
	}
	spec.Warmup = warmup

	return spec, nil
}

func parseWarmupPolicy(raw string) (WarmupPolicy, error) {
	switch raw {
	case "", "lazy":
		return WarmupLazy, nil
	case "eager":
		return WarmupEager, nil
	case "background":
		return WarmupBackground, nil
	default:
		return 0, fmt.Errorf("unknown warmup policy %q", raw)
	}
}
