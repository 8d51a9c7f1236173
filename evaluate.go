package userconfig

import (
	"errors"
	"time"
)

var ErrNoEvaluator = errors.New("userconfig: evaluator not configured")

func (s *Store) configureEvaluator(cfg storeConfig) {
	s.evaluator = cfg.evaluator
	if s.evaluator == nil {
		s.evaluator = NewExprEvaluator(
			ExprWithProgramCache(cfg.programCache),
			ExprWithFunctionRegistry(withBuiltins(cfg.functions)),
		)
	}
	s.evalLogger = cfg.evalLogger
	if s.evalLogger == nil {
		s.evalLogger = ZerologEvaluatorLogger(s.logger)
	}
}

// Evaluate runs expr against the current values. Sections are exposed as
// top-level variables, so `window.width >= 640` reads one option.
func (s *Store) Evaluate(expr string) (any, error) {
	return s.EvaluateWith(RuleContext{}, expr)
}

// EvaluateWith executes expr using ctx, falling back to the current values
// when ctx.Snapshot is nil.
func (s *Store) EvaluateWith(ctx RuleContext, expr string) (any, error) {
	if expr == "" {
		return nil, &InvalidArgumentError{Argument: "expr", Reason: "expression must not be empty"}
	}
	if s.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	if ctx.Snapshot == nil {
		snapshot := s.Snapshot()
		ctx.Snapshot = make(map[string]any, len(snapshot))
		for section, values := range snapshot {
			ctx.Snapshot[section] = values
		}
	}
	if ctx.Store == "" {
		ctx.Store = s.name
	}
	ctx = ctx.withDefaults()

	engine := evaluatorEngineName(s.evaluator)
	start := time.Now()
	value, err := s.evaluator.Evaluate(ctx, expr)
	duration := time.Since(start)
	err = wrapEvaluationError(engine, expr, ctx.label(), err)
	s.evalLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   engine,
		Expr:     expr,
		Store:    ctx.label(),
		Duration: duration,
		Err:      err,
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}
