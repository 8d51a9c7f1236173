// userconfig inspects and edits the settings file of a named store.
//
//	userconfig [flags] <name> get <section> <option>
//	userconfig [flags] <name> set <section> <option> <value>
//	userconfig [flags] <name> dump
//	userconfig [flags] <name> eval <expression>
//	userconfig [flags] <name> path
//	userconfig [flags] <name> cleanup
//
// Values given to set are read as literals (`42`, `True`, `[1, 'a']`) and
// fall back to plain text.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goliatone/go-userconfig"
	"github.com/goliatone/go-userconfig/internal/literal"
	"github.com/goliatone/go-userconfig/pkg/state"
	"github.com/goliatone/go-userconfig/schema/openapi"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var errUsage = errors.New("usage: userconfig [flags] <name> <get|set|dump|eval|path|cleanup> [args...]")

type cliFlags struct {
	dir      string
	version  string
	defaults string
	format   string
	engine   string
	section  string
	noLoad   bool
	verbose  bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var f cliFlags
	flagSet := pflag.NewFlagSet("userconfig", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Usage = func() {
		fmt.Fprintln(stderr, errUsage)
		fmt.Fprint(stderr, flagSet.FlagUsages())
	}
	flagSet.StringVar(&f.dir, "dir", "", "directory holding the settings file (default: home directory)")
	flagSet.StringVar(&f.version, "version", "", "configuration version in X.Y.Z form; a different stored version is migrated")
	flagSet.StringVar(&f.defaults, "defaults", "", "JSONC file mapping sections to their default options")
	flagSet.StringVar(&f.format, "format", "ini", "dump format: ini, json, yaml or openapi")
	flagSet.StringVar(&f.engine, "engine", string(userconfig.EngineExpr), "expression engine for eval: expr, cel or js")
	flagSet.StringVar(&f.section, "default-section", userconfig.DefaultSection, "section used for the version tag and empty section arguments")
	flagSet.BoolVar(&f.noLoad, "no-load", false, "ignore the existing file and start from the defaults")
	flagSet.BoolVarP(&f.verbose, "verbose", "v", false, "log at debug level")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	rest := flagSet.Args()
	if len(rest) < 2 {
		flagSet.Usage()
		return errUsage
	}
	name, command, operands := rest[0], rest[1], rest[2:]

	level := zerolog.InfoLevel
	if f.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).Level(level).With().Timestamp().Logger()

	if command == "path" {
		path, err := state.NewFileStore(state.WithDir(f.dir)).Location(state.Ref{Name: name})
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, path)
		return nil
	}

	defaults, err := loadDefaults(f.defaults)
	if err != nil {
		return err
	}
	evaluator, err := userconfig.NewEngineEvaluator(userconfig.Engine(f.engine), userconfig.NewMapProgramCache(), nil)
	if err != nil {
		return err
	}
	store, err := userconfig.New(name, defaults,
		userconfig.WithDir(f.dir),
		userconfig.WithVersion(f.version),
		userconfig.WithLoad(!f.noLoad),
		userconfig.WithDefaultSection(f.section),
		userconfig.WithLogger(logger),
		userconfig.WithEvaluator(evaluator),
	)
	if err != nil {
		return err
	}

	switch command {
	case "get":
		if len(operands) != 2 {
			return errUsage
		}
		value, err := store.Get(operands[0], operands[1])
		if err != nil {
			return err
		}
		return printValue(stdout, value)
	case "set":
		if len(operands) != 3 {
			return errUsage
		}
		return store.Set(operands[0], operands[1], parseOperand(operands[2]), userconfig.Verbose())
	case "dump":
		return dump(stdout, store, f.format)
	case "eval":
		if len(operands) == 0 {
			return errUsage
		}
		value, err := store.Evaluate(strings.Join(operands, " "))
		if err != nil {
			return err
		}
		return printValue(stdout, value)
	case "cleanup":
		return store.Cleanup()
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, command)
}

func parseOperand(text string) any {
	value, err := literal.Parse(text)
	if err != nil {
		return text
	}
	return value
}

func printValue(w io.Writer, value any) error {
	if s, ok := value.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	text, err := literal.Format(value)
	if err != nil {
		text = fmt.Sprint(value)
	}
	_, err = fmt.Fprintln(w, text)
	return err
}

func dump(w io.Writer, store *userconfig.Store, format string) error {
	switch format {
	case "ini":
		data, err := os.ReadFile(store.Filename())
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(store.Snapshot())
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(store.Snapshot()); err != nil {
			return err
		}
		return encoder.Close()
	case "openapi":
		schema, err := openapi.Generate(store.Schema())
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(schema)
	}
	return fmt.Errorf("unknown dump format %q", format)
}
