// Package sdlutil renders a schema to SDL with a deterministic layout,
// suitable for committing generated schemas and diffing them.
//
// Definitions are grouped and ordered: an explicit schema block when
// any root type has a non-default name, then the root types in query,
// mutation, subscription order, then custom scalars, then directive
// declarations, then every remaining named type, alphabetical within
// each group. Fields, arguments and union members are sorted by name.
// Visibility annotations and their declarations are omitted from the
// output; built-in types and directives are omitted as well. The input
// schema is never modified.
package sdlutil

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/llehouerou/go-graphql-schema-filter/types"
)

// Format renders schema to its canonical SDL form.
func Format(schema *ast.Schema) string {
	var buf bytes.Buffer
	_ = Fprint(&buf, schema)
	return buf.String()
}

// Fprint writes the canonical SDL form of schema to w.
func Fprint(w io.Writer, schema *ast.Schema) error {
	var buf bytes.Buffer
	emit := func(doc *ast.SchemaDocument) {
		f := formatter.NewFormatter(&buf)
		f.FormatSchemaDocument(doc)
	}

	if block := schemaBlock(schema); block != nil {
		emit(&ast.SchemaDocument{Schema: ast.SchemaDefinitionList{block}})
	}

	roots, scalars, remaining := groupTypes(schema)
	if len(roots) > 0 {
		emit(&ast.SchemaDocument{Definitions: roots})
	}
	if len(scalars) > 0 {
		emit(&ast.SchemaDocument{Definitions: scalars})
	}
	if directives := directiveDeclarations(schema); len(directives) > 0 {
		emit(&ast.SchemaDocument{Directives: directives})
	}
	if len(remaining) > 0 {
		emit(&ast.SchemaDocument{Definitions: remaining})
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// schemaBlock returns an explicit schema definition when any root type
// deviates from its default name, nil otherwise.
func schemaBlock(schema *ast.Schema) *ast.SchemaDefinition {
	ops := []struct {
		op          ast.Operation
		def         *ast.Definition
		defaultName string
	}{
		{ast.Query, schema.Query, "Query"},
		{ast.Mutation, schema.Mutation, "Mutation"},
		{ast.Subscription, schema.Subscription, "Subscription"},
	}
	needed := false
	block := &ast.SchemaDefinition{}
	for _, o := range ops {
		if o.def == nil {
			continue
		}
		block.OperationTypes = append(block.OperationTypes, &ast.OperationTypeDefinition{
			Operation: o.op,
			Type:      o.def.Name,
		})
		if o.def.Name != o.defaultName {
			needed = true
		}
	}
	if !needed {
		return nil
	}
	return block
}

func groupTypes(schema *ast.Schema) (roots, scalars, remaining ast.DefinitionList) {
	rootNames := map[string]bool{}
	for _, root := range []*ast.Definition{schema.Query, schema.Mutation, schema.Subscription} {
		if root != nil {
			rootNames[root.Name] = true
			roots = append(roots, printable(root))
		}
	}

	var names []string
	for name := range schema.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := schema.Types[name]
		if def.BuiltIn || rootNames[name] || strings.HasPrefix(name, types.IntrospectionPrefix) {
			continue
		}
		if def.Kind == ast.Scalar {
			scalars = append(scalars, printable(def))
		} else {
			remaining = append(remaining, printable(def))
		}
	}
	return roots, scalars, remaining
}

func directiveDeclarations(schema *ast.Schema) ast.DirectiveDefinitionList {
	var names []string
	for name, dd := range schema.Directives {
		if builtinDeclaration(dd) ||
			name == types.VisibleToDirective ||
			name == types.NoAutoExposeDirective {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var out ast.DirectiveDefinitionList
	for _, name := range names {
		out = append(out, printableDirective(schema.Directives[name]))
	}
	return out
}

// builtinDeclaration reports whether dd comes from the parser prelude,
// which is the only origin marker directive definitions carry.
func builtinDeclaration(dd *ast.DirectiveDefinition) bool {
	return dd.Position != nil && dd.Position.Src != nil && dd.Position.Src.BuiltIn
}

// printableDirective ensures the declaration carries a source position;
// the formatter dereferences Position.Src on every directive definition
// and would crash on a hand-built positionless one.
func printableDirective(dd *ast.DirectiveDefinition) *ast.DirectiveDefinition {
	if dd.Position != nil && dd.Position.Src != nil {
		return dd
	}
	out := *dd
	out.Position = &ast.Position{Src: &ast.Source{Name: "schema.graphql"}}
	return &out
}

// printable returns a render copy of def with sorted fields, sorted
// arguments, sorted union members and visibility annotations removed.
// The copy shares leaf nodes with the input; it exists only so the
// input is never reordered or stripped in place.
func printable(def *ast.Definition) *ast.Definition {
	out := *def
	out.Directives = stripVisibility(def.Directives)

	if len(def.Fields) > 0 {
		fields := make(ast.FieldList, len(def.Fields))
		copy(fields, def.Fields)
		sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
		for i, field := range fields {
			fields[i] = printableField(field)
		}
		out.Fields = fields
	}
	if len(def.Types) > 0 {
		members := make([]string, len(def.Types))
		copy(members, def.Types)
		sort.Strings(members)
		out.Types = members
	}
	return &out
}

func printableField(field *ast.FieldDefinition) *ast.FieldDefinition {
	out := *field
	out.Directives = stripVisibility(field.Directives)
	if len(field.Arguments) > 0 {
		args := make(ast.ArgumentDefinitionList, len(field.Arguments))
		copy(args, field.Arguments)
		sort.Slice(args, func(i, j int) bool { return args[i].Name < args[j].Name })
		out.Arguments = args
	}
	return &out
}

func stripVisibility(list ast.DirectiveList) ast.DirectiveList {
	var out ast.DirectiveList
	for _, d := range list {
		if d.Name == types.VisibleToDirective || d.Name == types.NoAutoExposeDirective {
			continue
		}
		out = append(out, d)
	}
	return out
}
