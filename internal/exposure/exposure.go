// Package exposure resolves the declarative visibility annotations of a
// schema into a read-only summary that the reachability and rebuild
// stages query through a single predicate.
package exposure

import (
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/llehouerou/go-graphql-schema-filter/types"
)

// Analysis is the visibility summary of one source schema. It is built
// once per schema, never mutated afterwards, and is safe for concurrent
// readers.
type Analysis struct {
	queryName        string
	mutationName     string
	subscriptionName string

	types map[string]*typeInfo
}

type typeInfo struct {
	kind         ast.DefinitionKind
	isRoot       bool
	noAutoExpose bool

	// fieldTags holds an entry per annotated field. A present entry
	// with an empty slice means "annotated with no tags", which is the
	// explicit universal exclusion; absence means "not annotated".
	fieldTags map[string][]string
}

// Func is a bound per-call exposure predicate over (typeName, fieldName).
type Func func(typeName, fieldName string) bool

// Analyze builds the visibility summary for schema in a single pass over
// its type definitions. Introspection and built-in types are skipped;
// they carry no annotations and are never filtered.
func Analyze(schema *ast.Schema) *Analysis {
	a := &Analysis{
		types: make(map[string]*typeInfo, len(schema.Types)),
	}
	if schema.Query != nil {
		a.queryName = schema.Query.Name
	}
	if schema.Mutation != nil {
		a.mutationName = schema.Mutation.Name
	}
	if schema.Subscription != nil {
		a.subscriptionName = schema.Subscription.Name
	}

	for name, def := range schema.Types {
		if def.BuiltIn || strings.HasPrefix(name, types.IntrospectionPrefix) {
			continue
		}
		info := &typeInfo{
			kind:         def.Kind,
			isRoot:       name == a.queryName || name == a.mutationName || name == a.subscriptionName,
			noAutoExpose: def.Directives.ForName(types.NoAutoExposeDirective) != nil,
			fieldTags:    make(map[string][]string),
		}
		for _, field := range def.Fields {
			tags, annotated := fieldTagList(field.Directives)
			if annotated {
				info.fieldTags[field.Name] = tags
			}
		}
		a.types[name] = info
	}
	return a
}

// fieldTagList collects the tag lists of every visibility directive on a
// field. The directive is repeatable; multiple applications concatenate.
// The second return value reports whether the field is annotated at all.
func fieldTagList(directives ast.DirectiveList) ([]string, bool) {
	var tags []string
	annotated := false
	for _, d := range directives {
		if d.Name != types.VisibleToDirective {
			continue
		}
		annotated = true
		if tags == nil {
			tags = []string{}
		}
		arg := d.Arguments.ForName(types.VisibleToTagsArg)
		if arg == nil || arg.Value == nil {
			continue
		}
		for _, child := range arg.Value.Children {
			tags = append(tags, child.Value.Raw)
		}
	}
	return tags, annotated
}

// IsExposed reports whether field fieldName of type typeName is visible
// to target.
//
// An explicit tag list always wins: the field is exposed iff target is a
// member (an empty list excludes everybody). Without an annotation,
// input-object fields are always included, while output fields default
// to included unless their owner is a root type or carries the
// no-auto-expose marker, in which case only tagged fields survive.
func (a *Analysis) IsExposed(typeName, fieldName, target string) bool {
	info := a.types[typeName]
	if info == nil {
		return false
	}
	if tags, annotated := info.fieldTags[fieldName]; annotated {
		for _, tag := range tags {
			if tag == target {
				return true
			}
		}
		return false
	}
	if info.kind == ast.InputObject {
		return true
	}
	if info.isRoot || info.noAutoExpose {
		return false
	}
	return true
}

// Bind fixes the predicate to one target plus an optional overlay of
// forced root fields ("entry points"), yielding the function consumed by
// the traversal and rebuild stages.
func (a *Analysis) Bind(target string, forced map[string]map[string]bool) Func {
	return func(typeName, fieldName string) bool {
		if forced != nil && forced[typeName][fieldName] {
			return true
		}
		return a.IsExposed(typeName, fieldName, target)
	}
}

// RootNames returns the names of the root types present in the schema,
// in query, mutation, subscription order.
func (a *Analysis) RootNames() []string {
	var names []string
	for _, name := range []string{a.queryName, a.mutationName, a.subscriptionName} {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// IsRoot reports whether typeName is one of the schema's root types.
func (a *Analysis) IsRoot(typeName string) bool {
	info := a.types[typeName]
	return info != nil && info.isRoot
}

// Targets returns every audience tag that appears in any visibility
// annotation of the schema, sorted and deduplicated.
func (a *Analysis) Targets() []string {
	seen := make(map[string]bool)
	for _, info := range a.types {
		for _, tags := range info.fieldTags {
			for _, tag := range tags {
				seen[tag] = true
			}
		}
	}
	targets := make([]string, 0, len(seen))
	for tag := range seen {
		targets = append(targets, tag)
	}
	sort.Strings(targets)
	return targets
}
