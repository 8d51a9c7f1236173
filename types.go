package userconfig

import (
	"sort"
	"time"
)

// Defaults supplies the baseline values of a store, and with them the kind
// of every option. A nil Defaults means none were supplied.
type Defaults interface {
	sections(defaultSection string) []Section
}

// Flat is a single implicit section named by the store's default section.
type Flat map[string]any

func (f Flat) sections(defaultSection string) []Section {
	return []Section{{Name: defaultSection, Options: f}}
}

// Section is one named group of defaults. Within a section, options are
// written in lexical key order.
type Section struct {
	Name    string
	Options map[string]any
}

// Sections is the ordered form of Defaults; section order drives file layout.
type Sections []Section

func (s Sections) sections(string) []Section {
	return s
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// SchemaFormat identifies the representation a schema document encodes.
type SchemaFormat string

// SchemaFormatDescriptors represents the flattened field descriptors.
const SchemaFormatDescriptors SchemaFormat = "descriptors"

// SchemaDocument is the descriptor list generated from the defaults table.
type SchemaDocument struct {
	Format   SchemaFormat
	Document []FieldDescriptor
}

// RuleContext carries inputs needed when evaluating an expression.
type RuleContext struct {
	// Snapshot is exposed to expressions with its keys as top-level
	// variables. A nil Snapshot is replaced by the store's current values.
	Snapshot map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	// Store names the store in logs and errors.
	Store string
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	if ctx.Now == nil {
		return time.Now()
	}
	return *ctx.Now
}

func (ctx RuleContext) label() string {
	if ctx.Store != "" {
		return ctx.Store
	}
	return "unknown"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}
