package rebuild

import (
	"testing"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/llehouerou/go-graphql-schema-filter/internal/exposure"
	"github.com/llehouerou/go-graphql-schema-filter/internal/reachability"
	"github.com/llehouerou/go-graphql-schema-filter/types"
)

func mustLoadSchema(t *testing.T, sdl string) *ast.Schema {
	t.Helper()
	schema, err := gqlparser.LoadSchema(&ast.Source{
		Name:  "test.graphql",
		Input: types.DirectiveSDL + "\n" + sdl,
	})
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	return schema
}

func build(t *testing.T, sdl, target string, policy Policy) (*ast.Schema, *ast.Schema) {
	t.Helper()
	src := mustLoadSchema(t, sdl)
	a := exposure.Analyze(src)
	pred := a.Bind(target, nil)
	reach := reachability.Compute(src, pred, reachability.Options{AllImplementors: true})
	out, err := Build(src, pred, reach, policy)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return src, out
}

func fieldNames(def *ast.Definition) []string {
	var names []string
	for _, f := range def.Fields {
		names = append(names, f.Name)
	}
	return names
}

func TestBuildSelfCycleSingleInstance(t *testing.T) {
	_, out := build(t, `
type Query {
	me: User @visibleTo(tags: ["readonly"])
}
type User {
	id: ID!
	friends: [User!]!
}
`, "readonly", Policy{})

	user := out.Types["User"]
	if user == nil {
		t.Fatal("User missing from result")
	}
	// Exactly one instance, reachable both through the table and
	// through the possible-types index.
	for _, def := range out.PossibleTypes["User"] {
		if def != user {
			t.Error("possible-types holds a second User instance")
		}
	}
	if got := user.Fields.ForName("friends"); got == nil {
		t.Fatal("User.friends missing")
	} else if out.Types[got.Type.Name()] != user {
		t.Error("User.friends element type does not resolve to the result User")
	}
}

func TestBuildOwnsNoSourceNodes(t *testing.T) {
	src, out := build(t, `
type Query {
	me: User @visibleTo(tags: ["readonly"])
}
type User {
	id: ID!
	friends: [User!]!
}
`, "readonly", Policy{})

	for name, def := range out.Types {
		if def.BuiltIn {
			continue
		}
		if src.Types[name] == def {
			t.Errorf("%s is shared with the source schema", name)
		}
		srcDef := src.Types[name]
		for i, field := range def.Fields {
			if srcField := srcDef.Fields.ForName(field.Name); srcField == field {
				t.Errorf("%s.%s is shared with the source schema", name, field.Name)
			} else if srcField != nil && srcField.Type == def.Fields[i].Type {
				t.Errorf("%s.%s type node is shared with the source schema", name, field.Name)
			}
		}
	}
}

func TestBuildDropsEmptiedTypeAndItsFields(t *testing.T) {
	// Audit is reachable for readonly (the field is exposed) but every
	// one of its own fields is admin-only, so the type is dropped and
	// the field referencing it goes with it.
	_, out := build(t, `
type Query {
	user: User @visibleTo(tags: ["readonly"])
}
type User {
	id: ID!
	audit: Audit
}
type Audit @noAutoExpose {
	entries: [String!] @visibleTo(tags: ["admin"])
}
`, "readonly", Policy{})

	if out.Types["Audit"] != nil {
		t.Error("Audit survived with no exposed fields")
	}
	user := out.Types["User"]
	if user == nil {
		t.Fatal("User missing from result")
	}
	if user.Fields.ForName("audit") != nil {
		t.Errorf("User.audit kept despite its type being dropped; fields: %v", fieldNames(user))
	}
	if user.Fields.ForName("id") == nil {
		t.Error("User.id dropped")
	}
}

func TestBuildCascadingDrop(t *testing.T) {
	// Dropping Inner empties Outer, which in turn drops Query.outer.
	// The reconciliation loop has to settle this, not a single pass.
	_, out := build(t, `
type Query {
	outer: Outer @visibleTo(tags: ["readonly"])
	ok: String @visibleTo(tags: ["readonly"])
}
type Outer {
	inner: Inner
}
type Inner @noAutoExpose {
	hidden: String @visibleTo(tags: ["admin"])
}
`, "readonly", Policy{})

	if out.Types["Inner"] != nil || out.Types["Outer"] != nil {
		t.Error("emptied types survived the reconciliation loop")
	}
	query := out.Query
	if query == nil {
		t.Fatal("Query missing")
	}
	if query.Fields.ForName("outer") != nil {
		t.Error("Query.outer kept despite Outer being dropped")
	}
	if query.Fields.ForName("ok") == nil {
		t.Error("Query.ok dropped")
	}
}

func TestBuildUnionMembersPruned(t *testing.T) {
	_, out := build(t, `
type Query {
	search: SearchResult @visibleTo(tags: ["readonly"])
}
union SearchResult = User | Vault
type User { id: ID! }
type Vault @noAutoExpose {
	combination: String @visibleTo(tags: ["admin"])
}
`, "readonly", Policy{})

	union := out.Types["SearchResult"]
	if union == nil {
		t.Fatal("SearchResult missing")
	}
	if len(union.Types) != 1 || union.Types[0] != "User" {
		t.Errorf("union members = %v, want [User]", union.Types)
	}
	if len(out.PossibleTypes["SearchResult"]) != 1 {
		t.Errorf("possible types = %d entries, want 1", len(out.PossibleTypes["SearchResult"]))
	}
}

func TestBuildEmptyUnionDropped(t *testing.T) {
	_, out := build(t, `
type Query {
	search: SearchResult @visibleTo(tags: ["readonly"])
	ok: String @visibleTo(tags: ["readonly"])
}
union SearchResult = Vault
type Vault @noAutoExpose {
	combination: String @visibleTo(tags: ["admin"])
}
`, "readonly", Policy{})

	if out.Types["SearchResult"] != nil {
		t.Error("memberless union survived")
	}
	if out.Query.Fields.ForName("search") != nil {
		t.Error("Query.search kept despite its union being dropped")
	}
}

func TestBuildRootPolicy(t *testing.T) {
	const sdl = `
type Query {
	users: [User!] @visibleTo(tags: ["readonly"])
}
type Mutation {
	deleteUser(id: ID!): Boolean @visibleTo(tags: ["admin"])
}
type User { id: ID! }
`
	_, omit := build(t, sdl, "readonly", Policy{})
	if omit.Mutation != nil {
		t.Error("empty mutation root kept under the omit policy")
	}
	if omit.Types["Mutation"] != nil {
		t.Error("empty mutation root still registered")
	}

	_, keep := build(t, sdl, "readonly", Policy{KeepEmptyRoots: true})
	if keep.Mutation == nil {
		t.Fatal("empty mutation root omitted under the keep policy")
	}
	if len(keep.Mutation.Fields) != 0 {
		t.Errorf("placeholder root has fields: %v", fieldNames(keep.Mutation))
	}
}

func TestBuildStripsVisibilityAnnotations(t *testing.T) {
	_, out := build(t, `
type Query {
	me: User @visibleTo(tags: ["readonly"])
}
type User {
	id: ID! @visibleTo(tags: ["readonly"]) @deprecated(reason: "use uuid")
	uuid: ID
}
`, "readonly", Policy{})

	if out.Directives[types.VisibleToDirective] != nil || out.Directives[types.NoAutoExposeDirective] != nil {
		t.Error("visibility directive definitions leaked into the result")
	}
	id := out.Types["User"].Fields.ForName("id")
	for _, d := range id.Directives {
		if d.Name == types.VisibleToDirective {
			t.Error("visibility annotation leaked into a result field")
		}
	}
	if id.Directives.ForName("deprecated") == nil {
		t.Error("unrelated directive application was stripped")
	}
}

func TestBuildInterfaceLinks(t *testing.T) {
	_, out := build(t, `
type Query {
	node: Node @visibleTo(tags: ["readonly"])
}
interface Node { id: ID! }
type User implements Node {
	id: ID!
	name: String
}
`, "readonly", Policy{})

	user := out.Types["User"]
	node := out.Types["Node"]
	if user == nil || node == nil {
		t.Fatal("interface or implementor missing")
	}
	if len(out.PossibleTypes["Node"]) != 1 || out.PossibleTypes["Node"][0] != user {
		t.Error("possible-types index does not point at the result implementor")
	}
	if len(out.Implements["User"]) != 1 || out.Implements["User"][0] != node {
		t.Error("implements index does not point at the result interface")
	}
}

func TestBuildArgumentTypesCarried(t *testing.T) {
	_, out := build(t, `
type Query {
	users(filter: UserFilter, first: Int): [User!] @visibleTo(tags: ["readonly"])
}
type User { id: ID! }
input UserFilter {
	name: String
	internal: ID @visibleTo(tags: [])
}
`, "readonly", Policy{})

	filter := out.Types["UserFilter"]
	if filter == nil {
		t.Fatal("argument input type missing")
	}
	if filter.Fields.ForName("name") == nil {
		t.Error("untagged input field dropped")
	}
	if filter.Fields.ForName("internal") != nil {
		t.Error("universally excluded input field kept")
	}
}

func TestBuildDirectiveDefinitions(t *testing.T) {
	_, out := build(t, `
directive @cost(weight: Int!) on FIELD_DEFINITION

type Query {
	me: User @visibleTo(tags: ["readonly"])
}
type User {
	id: ID! @cost(weight: 1)
	old: ID @deprecated
}
`, "readonly", Policy{})

	// Prelude declarations never enter the result; the parser of the
	// rendered output re-attaches its own.
	for _, name := range []string{"skip", "include", "deprecated"} {
		if out.Directives[name] != nil {
			t.Errorf("prelude directive definition %q carried into the result", name)
		}
	}

	cost := out.Directives["cost"]
	if cost == nil {
		t.Fatal("custom directive definition missing")
	}
	if cost.Position == nil || cost.Position.Src == nil {
		t.Error("copied directive definition has no source position")
	}
	if cost.Position != nil && cost.Position.Src != nil && cost.Position.Src.BuiltIn {
		t.Error("copied directive definition marked built-in")
	}

	id := out.Types["User"].Fields.ForName("id")
	if id.Directives.ForName("cost") == nil {
		t.Error("custom directive application stripped")
	}
	if out.Types["User"].Fields.ForName("old").Directives.ForName("deprecated") == nil {
		t.Error("built-in directive application stripped")
	}
}
