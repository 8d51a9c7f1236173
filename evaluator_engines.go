package userconfig

import (
	"errors"
	"fmt"
)

// Engine names a built-in expression engine.
type Engine string

const (
	EngineExpr Engine = "expr"
	EngineCEL  Engine = "cel"
	// EngineJS requires the js_eval build tag.
	EngineJS Engine = "js"
)

// ErrEngineUnavailable reports an engine not compiled into the binary.
var ErrEngineUnavailable = errors.New("userconfig: evaluator engine unavailable")

// NewEngineEvaluator builds the named engine sharing one cache and registry.
func NewEngineEvaluator(engine Engine, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	registry = withBuiltins(registry)
	switch engine {
	case EngineExpr, "":
		return NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(registry)), nil
	case EngineCEL:
		return NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry)), nil
	case EngineJS:
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("%w: %s (build with -tags js_eval)", ErrEngineUnavailable, engine)
		}
		return NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(registry)), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrEngineUnavailable, engine)
}

type jsEvaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// JSEvaluatorOption configures the JS evaluator.
type JSEvaluatorOption func(*jsEvaluatorConfig)

// JSWithProgramCache applies a ProgramCache to the JS evaluator.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		cfg.cache = cache
	}
}

// JSWithFunctionRegistry applies a FunctionRegistry to the JS evaluator.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(cfg *jsEvaluatorConfig) {
		if registry != nil {
			cfg.registry = registry.Clone()
		}
	}
}

func applyJSEvaluatorOptions(opts []JSEvaluatorOption) jsEvaluatorConfig {
	cfg := jsEvaluatorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func evaluatorEngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return string(EngineExpr)
	case *celEvaluator:
		return string(EngineCEL)
	}
	if name := jsEngineName(e); name != "" {
		return name
	}
	return "custom"
}
