// Package docfilter implements the text-level filtering strategy: the
// source schema is rendered to SDL, reparsed to a syntax tree, pruned
// by name, and handed back to gqlparser, which re-resolves every
// internal reference from the pruned text. Unlike the rebuild engine it
// never manipulates a resolved graph, so it cannot produce stale or
// duplicate references by construction; the price is a full textual
// round trip.
package docfilter

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/llehouerou/go-graphql-schema-filter/internal/exposure"
	"github.com/llehouerou/go-graphql-schema-filter/internal/reachability"
	"github.com/llehouerou/go-graphql-schema-filter/pkg/sdlutil"
	"github.com/llehouerou/go-graphql-schema-filter/types"
)

// Build filters src for the target bound into pred by pruning its
// textual form and letting gqlparser rebuild the schema graph.
func Build(src *ast.Schema, pred exposure.Func, reach reachability.Set, keepEmptyRoots bool) (*ast.Schema, error) {
	sdl := sdlutil.Format(src)
	doc, err := parser.ParseSchemas(validator.Prelude, &ast.Source{
		Name:  "filtered.graphql",
		Input: sdl,
	})
	if err != nil {
		return nil, fmt.Errorf("reparse schema text: %w", err)
	}

	rootNames := make(map[string]bool)
	for _, root := range []*ast.Definition{src.Query, src.Mutation, src.Subscription} {
		if root != nil {
			rootNames[root.Name] = true
		}
	}

	builtin := make(map[string]bool)
	for _, def := range doc.Definitions {
		if def.BuiltIn || strings.HasPrefix(def.Name, types.IntrospectionPrefix) {
			builtin[def.Name] = true
		}
	}

	keep := make(map[string]bool)
	for _, def := range doc.Definitions {
		if builtin[def.Name] {
			continue
		}
		keep[def.Name] = reach.Contains(def.Name) || rootNames[def.Name]
	}

	prune(doc, pred, keep, builtin)

	kept := doc.Definitions[:0]
	for _, def := range doc.Definitions {
		if builtin[def.Name] || keep[def.Name] {
			kept = append(kept, def)
		}
	}
	doc.Definitions = kept

	present := make(map[string]bool, len(doc.Definitions))
	for _, def := range doc.Definitions {
		present[def.Name] = true
	}
	pruneDirectiveDeclarations(doc, present)
	pruneSchemaBlock(doc, present)

	schema, err := validator.ValidateSchemaDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("rebuild schema from pruned text: %w", err)
	}
	if keepEmptyRoots {
		restoreEmptyRoots(schema, src)
	}
	return schema, nil
}

// restoreEmptyRoots re-attaches a field-less placeholder for every
// source root whose filtered field set ended empty. Such a placeholder
// cannot ride through the textual round trip because gqlparser rejects
// field-less object types, so it is added to the validated schema
// directly, matching what the rebuild strategy produces.
func restoreEmptyRoots(schema, src *ast.Schema) {
	roots := []struct {
		src  *ast.Definition
		dest **ast.Definition
	}{
		{src.Query, &schema.Query},
		{src.Mutation, &schema.Mutation},
		{src.Subscription, &schema.Subscription},
	}
	for _, root := range roots {
		if root.src == nil || schema.Types[root.src.Name] != nil {
			continue
		}
		def := &ast.Definition{
			Kind:        ast.Object,
			Name:        root.src.Name,
			Description: root.src.Description,
		}
		schema.Types[def.Name] = def
		schema.PossibleTypes[def.Name] = append(schema.PossibleTypes[def.Name], def)
		*root.dest = def
	}
}

// prune drops unexposed fields and fields whose types are gone,
// iterating because emptying a type can invalidate fields of types
// already processed. Drops are monotonic, so in-place mutation of the
// tree is sound; the loop is bounded by the definition count.
//
// An emptied root type is dropped like any other type; the keep-roots
// policy re-attaches a placeholder after validation.
func prune(doc *ast.SchemaDocument, pred exposure.Func, keep, builtin map[string]bool) {
	survives := func(name string) bool { return keep[name] || builtin[name] }

	for changed := true; changed; {
		changed = false
		for _, def := range doc.Definitions {
			if builtin[def.Name] || !keep[def.Name] {
				continue
			}
			switch def.Kind {
			case ast.Object, ast.Interface, ast.InputObject:
				fields := def.Fields[:0]
				for _, field := range def.Fields {
					if !pred(def.Name, field.Name) || !survives(field.Type.Name()) {
						continue
					}
					argsOK := true
					for _, arg := range field.Arguments {
						if !survives(arg.Type.Name()) {
							argsOK = false
							break
						}
					}
					if argsOK {
						fields = append(fields, field)
					}
				}
				if len(fields) != len(def.Fields) {
					def.Fields = fields
					changed = true
				}
				def.Interfaces = surviving(def.Interfaces, survives)
				if len(def.Fields) == 0 {
					keep[def.Name] = false
					changed = true
				}
			case ast.Union:
				members := surviving(def.Types, survives)
				if len(members) != len(def.Types) {
					def.Types = members
					changed = true
				}
				if len(def.Types) == 0 {
					keep[def.Name] = false
					changed = true
				}
			}
		}
	}
}

func surviving(names []string, survives func(string) bool) []string {
	out := names[:0]
	for _, name := range names {
		if survives(name) {
			out = append(out, name)
		}
	}
	return out
}

// pruneDirectiveDeclarations removes custom directive declarations
// whose argument types did not survive, plus any remaining visibility
// declarations, then strips applications of removed directives.
func pruneDirectiveDeclarations(doc *ast.SchemaDocument, present map[string]bool) {
	declared := make(map[string]bool)
	kept := doc.Directives[:0]
	for _, dd := range doc.Directives {
		if dd.Name == types.VisibleToDirective || dd.Name == types.NoAutoExposeDirective {
			continue
		}
		ok := true
		for _, arg := range dd.Arguments {
			if !present[arg.Type.Name()] {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		declared[dd.Name] = true
		kept = append(kept, dd)
	}
	doc.Directives = kept

	stripList := func(list ast.DirectiveList) ast.DirectiveList {
		out := list[:0]
		for _, d := range list {
			if declared[d.Name] {
				out = append(out, d)
			}
		}
		return out
	}
	for _, def := range doc.Definitions {
		if def.BuiltIn {
			continue
		}
		def.Directives = stripList(def.Directives)
		for _, field := range def.Fields {
			field.Directives = stripList(field.Directives)
			for _, arg := range field.Arguments {
				arg.Directives = stripList(arg.Directives)
			}
		}
		for _, value := range def.EnumValues {
			value.Directives = stripList(value.Directives)
		}
	}
}

// pruneSchemaBlock drops operation-type entries of the explicit schema
// block that point at removed roots, and the block itself when empty.
func pruneSchemaBlock(doc *ast.SchemaDocument, present map[string]bool) {
	blocks := doc.Schema[:0]
	for _, block := range doc.Schema {
		ops := block.OperationTypes[:0]
		for _, op := range block.OperationTypes {
			if present[op.Type] {
				ops = append(ops, op)
			}
		}
		block.OperationTypes = ops
		if len(block.OperationTypes) > 0 {
			blocks = append(blocks, block)
		}
	}
	doc.Schema = blocks
}
