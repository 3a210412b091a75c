// Package main is the entry point for the schema-filter CLI.
package main

import (
	"github.com/llehouerou/go-graphql-schema-filter/internal/cmd"
)

func main() {
	cmd.Execute()
}
