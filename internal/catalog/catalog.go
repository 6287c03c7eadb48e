package catalog

import (
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/hashicorp/go-multierror"

	"github.com/modelrt/modelrt/internal/optionschema"
	"github.com/modelrt/modelrt/internal/providerdir"
	"github.com/modelrt/modelrt/internal/rterrors"
)

// Catalog is the alias -> AliasSpec mapping. Insert is a build-time-only
// operation (not goroutine-safe); Resolve is lock-free and safe for any
// number of concurrent readers once the catalog is built.
type Catalog struct {
	tree *iradix.Tree
}

// New returns an empty catalog ready for Insert calls.
func New() *Catalog {
	return &Catalog{tree: iradix.New()}
}

// Insert validates spec and, on success, stores it under spec.Alias.
// Every violation found is aggregated into the returned error via
// hashicorp/go-multierror rather than stopping at the first one, a
// superset of "report the first violation".
func (c *Catalog) Insert(spec AliasSpec, dir *providerdir.Directory, schemas *optionschema.Registry) error {
	var result *multierror.Error

	if err := validateAliasFormat(spec.Alias); err != nil {
		result = multierror.Append(result, err)
	} else if _, found := c.tree.Get([]byte(spec.Alias)); found {
		result = multierror.Append(result, rterrors.Configf("duplicate alias %q", spec.Alias))
	}

	var provider providerdir.Provider
	if spec.ProviderID == "" {
		result = multierror.Append(result, rterrors.Configf("alias %q: provider_id is required", spec.Alias))
	} else {
		p, err := dir.Get(spec.ProviderID)
		if err != nil {
			result = multierror.Append(result, rterrors.Configf("alias %q: %v", spec.Alias, err))
		} else {
			provider = p
			if !provider.Capabilities().Supports(spec.Task) {
				result = multierror.Append(result, rterrors.Configf(
					"alias %q: provider %q does not support task %q", spec.Alias, spec.ProviderID, spec.Task))
			}
		}
	}

	if spec.ModelID == "" {
		result = multierror.Append(result, rterrors.Configf("alias %q: model_id is required", spec.Alias))
	}

	if timeout, ok := spec.Timeout.Get(); ok && timeout < 1 {
		result = multierror.Append(result, rterrors.Configf("alias %q: timeout must be >= 1 second", spec.Alias))
	}

	if spec.LoadTimeout < 1 {
		result = multierror.Append(result, rterrors.Configf("alias %q: load_timeout must be >= 1 second", spec.Alias))
	}

	if retry, ok := spec.Retry.Get(); ok {
		if retry.MaxAttempts < 1 {
			result = multierror.Append(result, rterrors.Configf("alias %q: retry.max_attempts must be >= 1", spec.Alias))
		}
		if retry.InitialBackoffMS < 1 {
			result = multierror.Append(result, rterrors.Configf("alias %q: retry.initial_backoff_ms must be >= 1", spec.Alias))
		}
	}

	if schemas != nil && spec.ProviderID != "" {
		if err := schemas.Validate(spec.ProviderID, spec.Alias, spec.Options); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if result.ErrorOrNil() != nil {
		return result
	}

	tree, _, _ := c.tree.Insert([]byte(spec.Alias), spec)
	c.tree = tree
	return nil
}

// Resolve looks up an alias. Absent yields a Config error naming the
// unknown alias.
func (c *Catalog) Resolve(alias string) (AliasSpec, error) {
	v, ok := c.tree.Get([]byte(alias))
	if !ok {
		return AliasSpec{}, rterrors.Configf("unknown alias %q", alias)
	}
	return v.(AliasSpec), nil
}

// Contains reports whether alias has a catalog entry.
func (c *Catalog) Contains(alias string) bool {
	_, ok := c.tree.Get([]byte(alias))
	return ok
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	return c.tree.Len()
}

// Aliases returns every alias currently in the catalog, in ascending
// lexicographic order (the iteration order an immutable radix tree
// walk yields naturally).
func (c *Catalog) Aliases() []string {
	aliases := make([]string, 0, c.tree.Len())
	it := c.tree.Root().Iterator()
	for {
		k, _, ok := it.Next()
		if !ok {
			break
		}
		aliases = append(aliases, string(k))
	}
	return aliases
}

func validateAliasFormat(alias string) error {
	if alias == "" {
		return rterrors.Config("alias must not be empty")
	}
	idx := strings.IndexByte(alias, '/')
	if idx <= 0 || idx == len(alias)-1 {
		return rterrors.Configf("alias %q must be of the form <nonempty>/<nonempty>", alias)
	}
	return nil
}
