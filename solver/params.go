package solver

import (
	"sort"

	"github.com/pkg/errors"
)

// Well known parameter names.
const (
	ParamNonLinearIterations = "nIterations"
	ParamLinearIterations    = "lIterations"
)

// Defaults for the Gauss-Newton iteration counts.
const (
	DefaultNonLinearIterations = 3
	DefaultLinearIterations    = 200
)

// NamedParameters is a loosely typed bag of solver settings.
type NamedParameters map[string]interface{}

// DefaultParameters returns the default iteration counts.
func DefaultParameters() NamedParameters {
	return NamedParameters{
		ParamNonLinearIterations: uint(DefaultNonLinearIterations),
		ParamLinearIterations:    uint(DefaultLinearIterations),
	}
}

// Set stores a value under name.
func (p NamedParameters) Set(name string, v interface{}) {
	p[name] = v
}

// Uint returns the named parameter as a uint.
func (p NamedParameters) Uint(name string) (uint, error) {
	v, ok := p[name]
	if !ok {
		return 0, errors.Errorf("missing solver parameter %q", name)
	}
	switch n := v.(type) {
	case uint:
		return n, nil
	case uint32:
		return uint(n), nil
	case int:
		if n < 0 {
			return 0, errors.Errorf("solver parameter %q must be non-negative, got %d", name, n)
		}
		return uint(n), nil
	default:
		return 0, errors.Errorf("solver parameter %q must be an unsigned integer, got %T", name, v)
	}
}

// Names returns the parameter names in sorted order.
func (p NamedParameters) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
