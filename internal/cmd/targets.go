package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	schemafilter "github.com/llehouerou/go-graphql-schema-filter"
)

var targetsCmd = &cobra.Command{
	Use:   "targets <schema-glob>...",
	Short: "List every audience tag used in the schema",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := loadSchema(args)
		if err != nil {
			return err
		}
		targets := schemafilter.Targets(schema)
		if len(targets) == 0 {
			return fmt.Errorf("schema declares no audience tags")
		}
		for _, target := range targets {
			fmt.Println(target)
		}
		return nil
	},
}
