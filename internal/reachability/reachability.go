// Package reachability computes the transitive closure of type names
// needed to represent everything a target may see.
package reachability

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/llehouerou/go-graphql-schema-filter/internal/exposure"
	"github.com/llehouerou/go-graphql-schema-filter/types"
)

// Set is a flat set of reachable type names. It carries no ordering and
// no per-field detail; each filter call builds a fresh one.
type Set map[string]struct{}

// Contains reports whether name is in the set.
func (s Set) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Options control the structural edges of the traversal.
type Options struct {
	// AllImplementors pulls in every object implementing a reached
	// interface, whether or not the object is otherwise exposed to the
	// target. When false, implementors are only reached through
	// exposed data flow.
	AllImplementors bool
}

// Compute walks the schema breadth-first from its root types and
// returns every type name required for the target bound into pred.
//
// Field and argument edges are followed only for exposed fields.
// Interface-implements edges, union-member edges and input-object field
// edges are structural and followed unconditionally; exposure gating for
// input fields happens later, during reconstruction. The visited set
// guarantees termination on cyclic schemas.
func Compute(schema *ast.Schema, pred exposure.Func, opts Options) Set {
	visited := make(Set)
	var queue []string

	enqueue := func(name string) {
		if name == "" || strings.HasPrefix(name, types.IntrospectionPrefix) {
			return
		}
		if visited.Contains(name) {
			return
		}
		visited[name] = struct{}{}
		queue = append(queue, name)
	}

	for _, root := range []*ast.Definition{schema.Query, schema.Mutation, schema.Subscription} {
		if root != nil {
			enqueue(root.Name)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		def := schema.Types[current]
		if def == nil {
			continue
		}

		switch def.Kind {
		case ast.Object, ast.Interface:
			for _, field := range def.Fields {
				if !pred(def.Name, field.Name) {
					continue
				}
				enqueue(field.Type.Name())
				for _, arg := range field.Arguments {
					enqueue(arg.Type.Name())
				}
			}
			for _, iface := range def.Interfaces {
				enqueue(iface)
			}
			if def.Kind == ast.Interface && opts.AllImplementors {
				for _, impl := range schema.PossibleTypes[def.Name] {
					enqueue(impl.Name)
				}
			}
		case ast.Union:
			for _, member := range def.Types {
				enqueue(member)
			}
		case ast.InputObject:
			for _, field := range def.Fields {
				enqueue(field.Type.Name())
			}
		case ast.Enum, ast.Scalar:
			// leaves
		}
	}

	return visited
}
