package rebuild

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/llehouerou/go-graphql-schema-filter/types"
)

// The copy helpers produce nodes owning no pointer into the source
// graph. Resolution pointers (Value.Definition and friends) are left
// unset on purpose; the result is re-indexed during assembly.

func (b *builder) copyDefinition(def *ast.Definition, fields ast.FieldList, interfaces, members []string) *ast.Definition {
	return &ast.Definition{
		Kind:        def.Kind,
		Description: def.Description,
		Name:        def.Name,
		Directives:  b.copyDirectiveList(def.Directives),
		Interfaces:  append([]string(nil), interfaces...),
		Fields:      fields,
		Types:       append([]string(nil), members...),
		EnumValues:  b.copyEnumValues(def.EnumValues),
	}
}

func (b *builder) copyField(field *ast.FieldDefinition) *ast.FieldDefinition {
	return &ast.FieldDefinition{
		Description:  field.Description,
		Name:         field.Name,
		Arguments:    b.copyArguments(field.Arguments),
		DefaultValue: copyValue(field.DefaultValue),
		Type:         copyType(field.Type),
		Directives:   b.copyDirectiveList(field.Directives),
	}
}

func (b *builder) copyFieldList(fields ast.FieldList) ast.FieldList {
	if fields == nil {
		return nil
	}
	out := make(ast.FieldList, 0, len(fields))
	for _, field := range fields {
		out = append(out, b.copyField(field))
	}
	return out
}

func (b *builder) copyArguments(args ast.ArgumentDefinitionList) ast.ArgumentDefinitionList {
	if args == nil {
		return nil
	}
	out := make(ast.ArgumentDefinitionList, 0, len(args))
	for _, arg := range args {
		out = append(out, &ast.ArgumentDefinition{
			Description:  arg.Description,
			Name:         arg.Name,
			DefaultValue: copyValue(arg.DefaultValue),
			Type:         copyType(arg.Type),
			Directives:   b.copyDirectiveList(arg.Directives),
		})
	}
	return out
}

// copyDirectiveList drops the visibility annotations and applications
// of directives whose definition does not survive filtering. Built-in
// directives like @deprecated are always applicable.
func (b *builder) copyDirectiveList(list ast.DirectiveList) ast.DirectiveList {
	var out ast.DirectiveList
	for _, d := range list {
		if d.Name == types.VisibleToDirective || d.Name == types.NoAutoExposeDirective {
			continue
		}
		if dd := b.src.Directives[d.Name]; dd != nil && !builtinDeclaration(dd) && !b.keptDirectives[d.Name] {
			continue
		}
		copied := &ast.Directive{Name: d.Name}
		for _, arg := range d.Arguments {
			copied.Arguments = append(copied.Arguments, &ast.Argument{
				Name:  arg.Name,
				Value: copyValue(arg.Value),
			})
		}
		out = append(out, copied)
	}
	return out
}

func (b *builder) copyEnumValues(values ast.EnumValueList) ast.EnumValueList {
	if values == nil {
		return nil
	}
	out := make(ast.EnumValueList, 0, len(values))
	for _, v := range values {
		out = append(out, &ast.EnumValueDefinition{
			Description: v.Description,
			Name:        v.Name,
			Directives:  b.copyDirectiveList(v.Directives),
		})
	}
	return out
}

// copyDirectiveDefinition gives the copy a fresh position: gqlparser's
// SDL formatter reads Position.Src on every directive definition, and a
// positionless one would crash it.
func (b *builder) copyDirectiveDefinition(dd *ast.DirectiveDefinition) *ast.DirectiveDefinition {
	srcName := "filtered.graphql"
	if dd.Position != nil && dd.Position.Src != nil {
		srcName = dd.Position.Src.Name
	}
	return &ast.DirectiveDefinition{
		Description:  dd.Description,
		Name:         dd.Name,
		Arguments:    b.copyArguments(dd.Arguments),
		Locations:    append([]ast.DirectiveLocation(nil), dd.Locations...),
		IsRepeatable: dd.IsRepeatable,
		Position:     &ast.Position{Src: &ast.Source{Name: srcName}},
	}
}

func copyType(t *ast.Type) *ast.Type {
	if t == nil {
		return nil
	}
	return &ast.Type{
		NamedType: t.NamedType,
		Elem:      copyType(t.Elem),
		NonNull:   t.NonNull,
	}
}

func copyValue(v *ast.Value) *ast.Value {
	if v == nil {
		return nil
	}
	out := &ast.Value{
		Raw:  v.Raw,
		Kind: v.Kind,
	}
	for _, child := range v.Children {
		out.Children = append(out.Children, &ast.ChildValue{
			Name:  child.Name,
			Value: copyValue(child.Value),
		})
	}
	return out
}
