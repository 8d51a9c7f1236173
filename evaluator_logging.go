package userconfig

import (
	"time"

	"github.com/rs/zerolog"
)

// EvaluatorLogEvent describes an evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Store    string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

// ZerologEvaluatorLogger writes evaluations at debug level and failures at
// warn level.
func ZerologEvaluatorLogger(logger zerolog.Logger) EvaluatorLogger {
	return EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
		entry := logger.Debug()
		if event.Err != nil {
			entry = logger.Warn().Err(event.Err)
		}
		entry.
			Str("event", "userconfig.evaluated").
			Str("engine", event.Engine).
			Str("expr", event.Expr).
			Str("store", event.Store).
			Dur("duration", event.Duration).
			Msg("expression evaluated")
	})
}

// WithEvaluatorLogger replaces the evaluator logger. By default evaluations
// go to the store's zerolog logger.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *storeConfig) {
		if logger == nil {
			cfg.evalLogger = EvaluatorLoggerFunc(nil)
			return
		}
		cfg.evalLogger = logger
	}
}
