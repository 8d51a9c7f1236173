package userconfig

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Function represents a callable registered against evaluators.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("userconfig: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("userconfig: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("userconfig: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("userconfig: function registry is nil")
	}
	fn, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry exposes the functions of registry to expressions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *storeConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for expressions evaluated by
// the store.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *storeConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

// compareVersions orders two MAJOR.MINOR.PATCH strings numerically. An empty
// version compares as 0.0.0.
func compareVersions(a, b string) (int, error) {
	pa, err := versionParts(a)
	if err != nil {
		return 0, err
	}
	pb, err := versionParts(b)
	if err != nil {
		return 0, err
	}
	for i := range pa {
		switch {
		case pa[i] < pb[i]:
			return -1, nil
		case pa[i] > pb[i]:
			return 1, nil
		}
	}
	return 0, nil
}

func versionParts(v string) ([3]uint64, error) {
	var parts [3]uint64
	v = effectiveVersion(v)
	if !ValidVersion(v) {
		return parts, &InvalidVersionError{Version: v}
	}
	for i, field := range strings.SplitN(v, ".", 3) {
		n, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			return parts, &InvalidVersionError{Version: v}
		}
		parts[i] = n
	}
	return parts, nil
}

// builtinFunctions are available to every store expression unless a
// registered function of the same name replaces them.
func builtinFunctions() map[string]Function {
	return map[string]Function{
		"version_cmp": func(args ...any) (any, error) {
			if len(args) != 2 {
				return nil, fmt.Errorf("userconfig: version_cmp expects 2 arguments, got %d", len(args))
			}
			a, okA := args[0].(string)
			b, okB := args[1].(string)
			if !okA || !okB {
				return nil, fmt.Errorf("userconfig: version_cmp expects string arguments")
			}
			return compareVersions(a, b)
		},
	}
}

func withBuiltins(registry *FunctionRegistry) *FunctionRegistry {
	out := registry.Clone()
	if out == nil {
		out = NewFunctionRegistry()
	}
	for name, fn := range builtinFunctions() {
		if _, err := out.lookup(name); err != nil {
			_ = out.Register(name, fn)
		}
	}
	return out
}

func (r *FunctionRegistry) lookup(name string) (Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn := r.functions[strings.ToLower(name)]
	if fn == nil {
		return nil, fmt.Errorf("userconfig: function %q not registered", name)
	}
	return fn, nil
}
