package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	schemafilter "github.com/llehouerou/go-graphql-schema-filter"
	"github.com/llehouerou/go-graphql-schema-filter/pkg/sdlutil"
	"github.com/llehouerou/go-graphql-schema-filter/types"
)

// loadSchema expands the glob patterns, reads every matching SDL
// fragment and merges them into one schema. When no fragment declares
// the visibility directives, the built-in declarations are prepended.
func loadSchema(patterns []string) (*ast.Schema, error) {
	var sources []*ast.Source
	declared := false
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no schema files match %q", pattern)
		}
		sort.Strings(matches)
		for _, path := range matches {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read schema fragment: %w", err)
			}
			if strings.Contains(string(data), "directive @"+types.VisibleToDirective) {
				declared = true
			}
			sources = append(sources, &ast.Source{Name: path, Input: string(data)})
		}
	}
	if !declared {
		sources = append([]*ast.Source{{
			Name:  "visibility-directives.graphql",
			Input: types.DirectiveSDL,
		}}, sources...)
	}

	schema, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return schema, nil
}

func filterSchema(f *schemafilter.Filter, schema *ast.Schema, target string) (string, error) {
	out, err := f.Apply(schema, target)
	if err != nil {
		return "", err
	}
	return sdlutil.Format(out), nil
}
