package types

// Schema-visibility constants used throughout the codebase.
// Centralizing these prevents typos and makes refactoring safer.
const (
	// VisibleToDirective is the name of the repeatable field-level
	// directive carrying the list of audience tags a field is exposed
	// to. An application with an empty tag list excludes the field
	// from every audience.
	VisibleToDirective = "visibleTo"

	// VisibleToTagsArg is the name of the list argument of the
	// visibility directive.
	VisibleToTagsArg = "tags"

	// NoAutoExposeDirective is the name of the type-level directive
	// that disables the implicit-public default for a type's output
	// fields, so that only explicitly tagged fields survive.
	NoAutoExposeDirective = "noAutoExpose"

	// IntrospectionPrefix marks reserved introspection type names
	// ("__Type", "__Schema", ...). Such types are never traversed and
	// never filtered.
	IntrospectionPrefix = "__"
)

// DirectiveSDL declares the two visibility directives. Source schemas
// must include these declarations (or equivalent ones) for the
// annotations to parse.
const DirectiveSDL = `directive @visibleTo(tags: [String!]!) repeatable on FIELD_DEFINITION | INPUT_FIELD_DEFINITION
directive @noAutoExpose on OBJECT | INTERFACE | INPUT_OBJECT
`
