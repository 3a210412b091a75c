// Package rebuild constructs a filtered schema graph node by node.
//
// The source graph is immutable and mutually referential, so a single
// forward pass cannot point every cross-reference at a filtered
// instance. The build therefore runs in three phases over a name-keyed
// table: provisional definitions to determine survivorship, a
// reconciliation loop that re-derives each definition from its source
// counterpart through the current table, and root assembly last. The
// result never references a source node.
package rebuild

import (
	"fmt"
	"sort"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/llehouerou/go-graphql-schema-filter/internal/exposure"
	"github.com/llehouerou/go-graphql-schema-filter/internal/reachability"
	"github.com/llehouerou/go-graphql-schema-filter/types"
)

// Policy selects the handling of root types whose filtered field set is
// empty: omitted from the result by default, kept as field-less
// placeholders when KeepEmptyRoots is set.
type Policy struct {
	KeepEmptyRoots bool
}

// ConsistencyError reports a violation of the construction invariants:
// a duplicate-named definition, a dangling reference, or a reference to
// a node outside the result graph. It signals a defect in the build
// ordering and is never recoverable.
type ConsistencyError struct {
	TypeName string
	Reason   string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inconsistent filtered schema: type %s: %s", e.TypeName, e.Reason)
}

type builder struct {
	src    *ast.Schema
	pred   exposure.Func
	reach  reachability.Set
	policy Policy

	// table is the arena: every surviving non-root definition lives
	// here and is referenced by name lookup only.
	table map[string]*ast.Definition

	rootNames      map[string]bool
	keptDirectives map[string]bool
}

// Build produces a fresh, self-consistent schema containing only the
// reachable types and exposed fields selected by pred and reach.
func Build(src *ast.Schema, pred exposure.Func, reach reachability.Set, policy Policy) (*ast.Schema, error) {
	b := &builder{
		src:       src,
		pred:      pred,
		reach:     reach,
		policy:    policy,
		table:     make(map[string]*ast.Definition),
		rootNames: make(map[string]bool),
	}
	for _, root := range []*ast.Definition{src.Query, src.Mutation, src.Subscription} {
		if root != nil {
			b.rootNames[root.Name] = true
		}
	}
	b.keptDirectives = b.directiveSurvivors(func(name string) bool {
		return reach.Contains(name) || b.isBuiltIn(name)
	})

	b.provisionalPass()
	b.reconcile()

	// A directive definition can lose an argument type during
	// reconciliation; recompute and settle once more if so.
	final := b.directiveSurvivors(b.survives)
	if len(final) != len(b.keptDirectives) {
		b.keptDirectives = final
		b.reconcile()
	}

	result := b.assemble()
	if err := validate(result); err != nil {
		return nil, err
	}
	return result, nil
}

// provisionalPass builds a first filtered definition for every
// reachable non-root type. References may still point at source names
// that later turn out to be dropped; the only decision taken here is
// survivorship of field-bearing types with an empty filtered field set.
func (b *builder) provisionalPass() {
	for _, name := range sortedNames(b.reach) {
		if b.rootNames[name] {
			continue
		}
		def := b.src.Types[name]
		if def == nil || def.BuiltIn {
			continue
		}
		switch def.Kind {
		case ast.Object, ast.Interface, ast.InputObject:
			fields := b.filterFields(def, nil)
			if len(fields) == 0 {
				continue
			}
			b.table[name] = b.copyDefinition(def, fields, def.Interfaces, def.Types)
		case ast.Union, ast.Enum, ast.Scalar:
			b.table[name] = b.copyDefinition(def, nil, def.Interfaces, def.Types)
		}
	}
}

// reconcile re-derives every table entry from its source definition,
// resolving all cross-references through the current table and
// publishing each rebuilt definition immediately. Dropping an entry can
// invalidate fields of already-processed types, so the pass repeats
// until the table is stable; each iteration can only shrink it, which
// bounds the loop by the type count.
func (b *builder) reconcile() {
	for changed := true; changed; {
		changed = false
		for _, name := range sortedKeys(b.table) {
			def := b.src.Types[name]
			switch def.Kind {
			case ast.Object, ast.Interface, ast.InputObject:
				fields := b.filterFields(def, b.survives)
				if len(fields) == 0 {
					delete(b.table, name)
					changed = true
					continue
				}
				b.table[name] = b.copyDefinition(def, fields, b.surviving(def.Interfaces), def.Types)
			case ast.Union:
				members := b.surviving(def.Types)
				if len(members) == 0 {
					delete(b.table, name)
					changed = true
					continue
				}
				b.table[name] = b.copyDefinition(def, nil, nil, members)
			case ast.Enum, ast.Scalar:
				b.table[name] = b.copyDefinition(def, nil, nil, nil)
			}
		}
	}
}

// assemble rebuilds the root types from the fully-reconciled table and
// packs everything into a new schema value, re-deriving the
// possible-types and implements indexes from result nodes only.
func (b *builder) assemble() *ast.Schema {
	result := &ast.Schema{
		Types:         make(map[string]*ast.Definition),
		Directives:    make(map[string]*ast.DirectiveDefinition),
		PossibleTypes: make(map[string][]*ast.Definition),
		Implements:    make(map[string][]*ast.Definition),
		Description:   b.src.Description,
	}

	for name, def := range b.src.Types {
		if def.BuiltIn {
			result.Types[name] = b.copyDefinition(def, b.copyFieldList(def.Fields), def.Interfaces, def.Types)
			result.Types[name].BuiltIn = true
		}
	}
	for name, def := range b.table {
		result.Types[name] = def
	}

	roots := []struct {
		src  *ast.Definition
		dest **ast.Definition
	}{
		{b.src.Query, &result.Query},
		{b.src.Mutation, &result.Mutation},
		{b.src.Subscription, &result.Subscription},
	}
	for _, root := range roots {
		if root.src == nil {
			continue
		}
		fields := b.filterFields(root.src, b.survives)
		if len(fields) == 0 && !b.policy.KeepEmptyRoots {
			continue
		}
		def := b.copyDefinition(root.src, fields, b.surviving(root.src.Interfaces), nil)
		*root.dest = def
		result.Types[def.Name] = def
	}

	for name, dd := range b.src.Directives {
		if !b.keptDirectives[name] {
			continue
		}
		result.Directives[name] = b.copyDirectiveDefinition(dd)
	}

	// Possible-types and implements indexes, from result nodes only.
	for _, def := range result.Types {
		switch def.Kind {
		case ast.Object:
			result.PossibleTypes[def.Name] = append(result.PossibleTypes[def.Name], def)
			for _, iface := range def.Interfaces {
				if ifaceDef := result.Types[iface]; ifaceDef != nil {
					result.PossibleTypes[iface] = append(result.PossibleTypes[iface], def)
					result.Implements[def.Name] = append(result.Implements[def.Name], ifaceDef)
				}
			}
		case ast.Interface:
			for _, iface := range def.Interfaces {
				if ifaceDef := result.Types[iface]; ifaceDef != nil {
					result.Implements[def.Name] = append(result.Implements[def.Name], ifaceDef)
				}
			}
		case ast.Union:
			for _, member := range def.Types {
				if memberDef := result.Types[member]; memberDef != nil {
					result.PossibleTypes[def.Name] = append(result.PossibleTypes[def.Name], memberDef)
					result.Implements[member] = append(result.Implements[member], def)
				}
			}
		}
	}

	return result
}

// filterFields returns fresh copies of the fields of def that pass the
// exposure predicate. With a non-nil survives check, a field whose
// return type or any argument type did not survive filtering is dropped
// as well.
func (b *builder) filterFields(def *ast.Definition, survives func(string) bool) ast.FieldList {
	var fields ast.FieldList
	for _, field := range def.Fields {
		if !b.pred(def.Name, field.Name) {
			continue
		}
		if survives != nil {
			if !survives(field.Type.Name()) {
				continue
			}
			ok := true
			for _, arg := range field.Arguments {
				if !survives(arg.Type.Name()) {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
		}
		fields = append(fields, b.copyField(field))
	}
	return fields
}

// survives reports whether a named type reference resolves inside the
// result graph: a table entry, a built-in type, or a root type (roots
// are assembled last and checked by the final validation).
func (b *builder) survives(name string) bool {
	if _, ok := b.table[name]; ok {
		return true
	}
	return b.rootNames[name] || b.isBuiltIn(name)
}

func (b *builder) surviving(names []string) []string {
	var out []string
	for _, name := range names {
		if b.survives(name) {
			out = append(out, name)
		}
	}
	return out
}

func (b *builder) isBuiltIn(name string) bool {
	def := b.src.Types[name]
	return def != nil && def.BuiltIn
}

// builtinDeclaration reports whether dd comes from the parser prelude.
// Directive definitions mark their origin through the source position,
// not a BuiltIn field like type definitions do.
func builtinDeclaration(dd *ast.DirectiveDefinition) bool {
	return dd.Position != nil && dd.Position.Src != nil && dd.Position.Src.BuiltIn
}

// directiveSurvivors returns the names of the directive definitions
// that can be carried into the result: everything except the visibility
// directives themselves, built-in declarations (reattached by whatever
// parses the result, never copied), and definitions whose argument
// types are gone.
func (b *builder) directiveSurvivors(survives func(string) bool) map[string]bool {
	kept := make(map[string]bool)
	for name, dd := range b.src.Directives {
		if name == types.VisibleToDirective || name == types.NoAutoExposeDirective {
			continue
		}
		if builtinDeclaration(dd) {
			continue
		}
		ok := true
		for _, arg := range dd.Arguments {
			if !survives(arg.Type.Name()) {
				ok = false
				break
			}
		}
		if ok {
			kept[name] = true
		}
	}
	return kept
}

func sortedNames(set reachability.Set) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedKeys(table map[string]*ast.Definition) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
