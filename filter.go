// Package schemafilter derives audience-specific public schemas from a
// single annotated GraphQL schema. Fields declare the audiences that
// may see them with the repeatable @visibleTo directive, types can opt
// out of the implicit-public default with @noAutoExpose, and a filter
// call computes the exact transitive closure of types needed to serve
// one audience and rebuilds a self-consistent schema from it.
package schemafilter

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/llehouerou/go-graphql-schema-filter/internal/docfilter"
	"github.com/llehouerou/go-graphql-schema-filter/internal/exposure"
	"github.com/llehouerou/go-graphql-schema-filter/internal/reachability"
	"github.com/llehouerou/go-graphql-schema-filter/internal/rebuild"
	"github.com/llehouerou/go-graphql-schema-filter/pkg/sdlutil"
	"github.com/llehouerou/go-graphql-schema-filter/types"
)

// DirectiveSDL declares the visibility directives. Append it to source
// schemas that do not declare them on their own.
const DirectiveSDL = types.DirectiveSDL

// Strategy selects how the filtered schema graph is produced.
type Strategy string

const (
	// StrategyRebuild constructs the filtered graph node by node with
	// the three-phase rebuild engine. This is the default.
	StrategyRebuild Strategy = "rebuild"

	// StrategyDocument round-trips the schema through its textual form
	// and prunes the syntax tree, delegating reference resolution to
	// the schema parser.
	StrategyDocument Strategy = "document"
)

// ParseStrategy converts a strategy name as accepted on the command
// line into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyRebuild, StrategyDocument:
		return Strategy(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// ImplementorPolicy controls what reaching an interface pulls in.
type ImplementorPolicy int

const (
	// AllImplementors pulls in every object implementing a reached
	// interface, even ones not otherwise exposed to the target. This
	// is the default.
	AllImplementors ImplementorPolicy = iota

	// ReachableImplementors pulls in only implementors independently
	// reached through exposed data flow.
	ReachableImplementors
)

// RootPolicy controls the handling of a root type whose filtered field
// set is empty.
type RootPolicy int

const (
	// OmitEmptyRoots removes such a root from the result. This is the
	// default.
	OmitEmptyRoots RootPolicy = iota

	// KeepEmptyRoots keeps it as a field-less placeholder, for
	// consumers that require the root to exist.
	KeepEmptyRoots
)

// Filter computes audience-specific schemas.
//
// # Immutable Pattern
//
// The With* methods return a new Filter rather than modifying the
// receiver, so a configured Filter can be shared freely and used
// concurrently. Always use the returned value:
//
//	f = f.WithStrategy(schemafilter.StrategyDocument) // correct
//	f.WithStrategy(schemafilter.StrategyDocument)     // wrong - original unchanged
type Filter struct {
	strategy     Strategy
	implementors ImplementorPolicy
	roots        RootPolicy
	entryPoints  []string
	logger       *slog.Logger
}

// New returns a Filter with the default configuration: the rebuild
// strategy, all-implementors expansion, empty roots omitted, and a
// discarding logger.
func New() *Filter {
	return &Filter{
		strategy: StrategyRebuild,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithStrategy returns a copy of f using the given strategy.
func (f *Filter) WithStrategy(strategy Strategy) *Filter {
	out := *f
	out.strategy = strategy
	return &out
}

// WithImplementorPolicy returns a copy of f using the given policy.
func (f *Filter) WithImplementorPolicy(policy ImplementorPolicy) *Filter {
	out := *f
	out.implementors = policy
	return &out
}

// WithRootPolicy returns a copy of f using the given policy.
func (f *Filter) WithRootPolicy(policy RootPolicy) *Filter {
	out := *f
	out.roots = policy
	return &out
}

// WithEntryPoints returns a copy of f that additionally treats the
// given root fields, written as "Type.field", as exposed regardless of
// their annotations. An entry point that does not name a field of a
// root type is reported as a warning and skipped.
func (f *Filter) WithEntryPoints(fields ...string) *Filter {
	out := *f
	out.entryPoints = append(append([]string(nil), f.entryPoints...), fields...)
	return &out
}

// WithLogger returns a copy of f logging through l.
func (f *Filter) WithLogger(l *slog.Logger) *Filter {
	out := *f
	out.logger = l
	return &out
}

// Strategy returns the configured strategy.
func (f *Filter) Strategy() Strategy {
	return f.strategy
}

// Apply filters schema down to what target may see and returns a new,
// independent schema graph. The source schema is never modified, so
// one schema may be filtered for several targets concurrently.
func (f *Filter) Apply(schema *ast.Schema, target string) (*ast.Schema, error) {
	if strings.TrimSpace(target) == "" {
		return nil, ErrEmptyTarget
	}

	analysis := exposure.Analyze(schema)
	forced := f.resolveEntryPoints(schema, analysis)
	pred := analysis.Bind(target, forced)

	reach := reachability.Compute(schema, pred, reachability.Options{
		AllImplementors: f.implementors == AllImplementors,
	})
	f.logger.Debug("computed reachable set",
		"target", target,
		"reachable", len(reach),
		"source_types", len(schema.Types))

	switch f.strategy {
	case StrategyRebuild:
		return rebuild.Build(schema, pred, reach, rebuild.Policy{
			KeepEmptyRoots: f.roots == KeepEmptyRoots,
		})
	case StrategyDocument:
		return docfilter.Build(schema, pred, reach, f.roots == KeepEmptyRoots)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, f.strategy)
}

// ApplySDL parses sdl, filters it for target and renders the result in
// the deterministic layout of pkg/sdlutil. The source text must declare
// the visibility directives; see DirectiveSDL.
func (f *Filter) ApplySDL(sdl, target string) (string, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{
		Name:  "schema.graphql",
		Input: sdl,
	})
	if err != nil {
		return "", fmt.Errorf("parse source schema: %w", err)
	}
	out, err := f.Apply(schema, target)
	if err != nil {
		return "", err
	}
	return sdlutil.Format(out), nil
}

// resolveEntryPoints validates the configured entry points against the
// schema's root types. Invalid entries are skipped with a warning;
// entry-point problems are never fatal.
func (f *Filter) resolveEntryPoints(schema *ast.Schema, analysis *exposure.Analysis) map[string]map[string]bool {
	if len(f.entryPoints) == 0 {
		return nil
	}
	forced := make(map[string]map[string]bool)
	for _, entry := range f.entryPoints {
		typeName, fieldName, ok := strings.Cut(entry, ".")
		if !ok {
			f.logger.Warn("skipping malformed entry point, want Type.field", "entry", entry)
			continue
		}
		if !analysis.IsRoot(typeName) {
			f.logger.Warn("skipping entry point on non-root type", "entry", entry)
			continue
		}
		def := schema.Types[typeName]
		if def == nil || def.Fields.ForName(fieldName) == nil {
			f.logger.Warn("skipping entry point, field not found on root type", "entry", entry)
			continue
		}
		if forced[typeName] == nil {
			forced[typeName] = make(map[string]bool)
		}
		forced[typeName][fieldName] = true
	}
	return forced
}

// Targets lists every audience tag used anywhere in schema, sorted.
func Targets(schema *ast.Schema) []string {
	return exposure.Analyze(schema).Targets()
}
