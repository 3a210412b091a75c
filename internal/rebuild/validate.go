package rebuild

import (
	"github.com/vektah/gqlparser/v2/ast"
)

// validate walks the finished schema and enforces the two hard output
// invariants: closure (every named reference resolves inside the
// result) and uniqueness (every reachable definition is the one
// instance registered under its name). A failure here means the phase
// ordering was violated; it is reported, never repaired.
func validate(schema *ast.Schema) error {
	for name, def := range schema.Types {
		if def == nil {
			return &ConsistencyError{TypeName: name, Reason: "nil definition"}
		}
		if def.Name != name {
			return &ConsistencyError{TypeName: name, Reason: "registered under a foreign name"}
		}
		if err := validateDefinition(schema, def); err != nil {
			return err
		}
	}

	roots := []*ast.Definition{schema.Query, schema.Mutation, schema.Subscription}
	for _, root := range roots {
		if root == nil {
			continue
		}
		if schema.Types[root.Name] != root {
			return &ConsistencyError{TypeName: root.Name, Reason: "root pointer is not the registered instance"}
		}
	}

	for name, defs := range schema.PossibleTypes {
		for _, def := range defs {
			if schema.Types[def.Name] != def {
				return &ConsistencyError{TypeName: name, Reason: "possible-types entry is not the registered instance"}
			}
		}
	}
	for name, defs := range schema.Implements {
		for _, def := range defs {
			if schema.Types[def.Name] != def {
				return &ConsistencyError{TypeName: name, Reason: "implements entry is not the registered instance"}
			}
		}
	}
	return nil
}

func validateDefinition(schema *ast.Schema, def *ast.Definition) error {
	resolve := func(ref *ast.Type) error {
		if schema.Types[ref.Name()] == nil {
			return &ConsistencyError{TypeName: def.Name, Reason: "dangling reference to " + ref.Name()}
		}
		return nil
	}

	for _, field := range def.Fields {
		if err := resolve(field.Type); err != nil {
			return err
		}
		for _, arg := range field.Arguments {
			if err := resolve(arg.Type); err != nil {
				return err
			}
		}
	}
	for _, iface := range def.Interfaces {
		if schema.Types[iface] == nil {
			return &ConsistencyError{TypeName: def.Name, Reason: "dangling interface reference to " + iface}
		}
	}
	for _, member := range def.Types {
		if schema.Types[member] == nil {
			return &ConsistencyError{TypeName: def.Name, Reason: "dangling union member reference to " + member}
		}
	}
	return nil
}
