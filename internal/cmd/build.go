package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vektah/gqlparser/v2/ast"
	"gopkg.in/yaml.v3"

	schemafilter "github.com/llehouerou/go-graphql-schema-filter"
)

var (
	buildTarget                string
	buildAllTargets            bool
	buildStrategy              string
	buildOut                   string
	buildOutDir                string
	buildEntryPoints           []string
	buildKeepEmptyRoots        bool
	buildReachableImplementors bool
)

var buildCmd = &cobra.Command{
	Use:   "build <schema-glob>...",
	Short: "Filter a schema for one audience, or for every audience at once",
	Long: `Build loads one or more SDL fragments, merges them into a single
schema, and writes the filtered public schema.

With --target the result goes to stdout or --out. With --all-targets
one file per discovered audience is written to --out-dir, together with
a manifest.yaml describing the run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	addBuildFlags(buildCmd.Flags())
}

func addBuildFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&buildTarget, "target", "t", "", "audience to build")
	fs.BoolVar(&buildAllTargets, "all-targets", false, "build every audience found in the schema")
	fs.StringVar(&buildStrategy, "strategy", "", "filtering strategy: rebuild or document")
	fs.StringVarP(&buildOut, "out", "o", "", "output file (default stdout)")
	fs.StringVar(&buildOutDir, "out-dir", "", "output directory for --all-targets")
	fs.StringSliceVar(&buildEntryPoints, "entry-point", nil, "root field (Type.field) to expose regardless of tags")
	fs.BoolVar(&buildKeepEmptyRoots, "keep-empty-roots", false, "keep field-less root types as placeholders")
	fs.BoolVar(&buildReachableImplementors, "reachable-implementors", false, "pull in only implementors reached through exposed fields")
}

// boolOption returns the flag value when the flag was set explicitly on
// the command line, the config value otherwise, so --flag=false can
// override a config file that turns the option on.
func boolOption(fs *pflag.FlagSet, name string, flagValue, cfgValue bool) bool {
	if fs.Changed(name) {
		return flagValue
	}
	return cfgValue
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	strategyName := cfg.Strategy
	if buildStrategy != "" {
		strategyName = buildStrategy
	}
	strategy, err := schemafilter.ParseStrategy(strategyName)
	if err != nil {
		return err
	}

	entryPoints := cfg.EntryPoints
	if len(buildEntryPoints) > 0 {
		entryPoints = buildEntryPoints
	}

	f := schemafilter.New().
		WithStrategy(strategy).
		WithLogger(logger).
		WithEntryPoints(entryPoints...)
	if boolOption(cmd.Flags(), "keep-empty-roots", buildKeepEmptyRoots, cfg.KeepEmptyRoots) {
		f = f.WithRootPolicy(schemafilter.KeepEmptyRoots)
	}
	if boolOption(cmd.Flags(), "reachable-implementors", buildReachableImplementors, cfg.ReachableImplementorsOnly) {
		f = f.WithImplementorPolicy(schemafilter.ReachableImplementors)
	}

	schema, err := loadSchema(args)
	if err != nil {
		return err
	}

	if buildAllTargets {
		outDir := buildOutDir
		if outDir == "" {
			outDir = cfg.OutDir
		}
		if outDir == "" {
			return fmt.Errorf("--all-targets requires --out-dir (or out_dir in the config)")
		}
		return buildAll(f, schema, outDir)
	}

	target := buildTarget
	if target == "" && len(cfg.Targets) > 0 {
		target = cfg.Targets[0]
	}
	if target == "" {
		return fmt.Errorf("no target: pass --target, --all-targets, or configure targets")
	}

	sdl, err := filterSchema(f, schema, target)
	if err != nil {
		return err
	}
	if buildOut == "" {
		fmt.Print(sdl)
		return nil
	}
	return os.WriteFile(buildOut, []byte(sdl), 0o644)
}

// manifest describes one all-targets run. It is written next to the
// generated schema files so downstream tooling can tell runs apart.
type manifest struct {
	ID        string            `yaml:"id"`
	Generated time.Time         `yaml:"generated"`
	Strategy  string            `yaml:"strategy"`
	Schemas   map[string]string `yaml:"schemas"`
}

// buildAll writes one filtered schema per discovered audience to
// outDir, plus a manifest.yaml identifying the run.
func buildAll(f *schemafilter.Filter, schema *ast.Schema, outDir string) error {
	targets := schemafilter.Targets(schema)
	if len(targets) == 0 {
		return fmt.Errorf("schema declares no audience tags")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	m := manifest{
		ID:        uuid.NewString(),
		Generated: time.Now().UTC(),
		Strategy:  string(f.Strategy()),
		Schemas:   make(map[string]string, len(targets)),
	}
	for _, target := range targets {
		sdl, err := filterSchema(f, schema, target)
		if err != nil {
			return fmt.Errorf("target %s: %w", target, err)
		}
		name := target + ".graphql"
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(sdl), 0o644); err != nil {
			return err
		}
		m.Schemas[target] = name
		logger.Debug("wrote filtered schema", "target", target, "file", name)
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(outDir, "manifest.yaml"), data, 0o644)
}
