// Package main provides the Bifrost CLI entry point.
package main

import (
	_ "embed"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/orneryd/bifrost/pkg/config"
	"github.com/orneryd/bifrost/pkg/source"
)

//go:embed demo_dataset.json
var demoDataset []byte

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bifrost",
		Short: "Bifrost - Interactive Knowledge Graph Explorer",
		Long: `Bifrost renders a node-link knowledge graph and lets you explore it
incrementally: search for an entity, expand nodes to reveal their
best-ranked neighbors, trace a path across hops, and pan/zoom — all while
the layout stays visually stable as the graph grows.

Features:
  • Incremental force-directed layout that preserves node positions
  • Multi-signal candidate ranking with category diversity
  • "Load more" paging over buffered expansion candidates
  • BFS path-trail highlighting across your hops
  • In-memory or persistent (badger) datasets`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Bifrost v%s (%s)\n", version, commit)
		},
	})

	importCmd := &cobra.Command{
		Use:   "import [dataset.json]",
		Short: "Import a JSON dataset into a persistent badger store",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	importCmd.Flags().String("data-dir", "./data", "Badger data directory")
	rootCmd.AddCommand(importCmd)

	exploreCmd := &cobra.Command{
		Use:   "explore [query]",
		Short: "Explore a graph interactively in the terminal",
		Long: `Open the terminal viewer on a dataset and run an initial query.

Mouse: click selects, double-click expands, right-click adds to the path
trail, drag on empty canvas pans, wheel zooms.
Keys: m = load more on the selected node, r = reset, q = quit.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExplore,
	}
	exploreCmd.Flags().String("dataset", "", "JSON dataset file (default: bundled demo)")
	exploreCmd.Flags().String("data-dir", "", "Badger data directory (overrides --dataset)")
	exploreCmd.Flags().String("config", "", "YAML config file")
	rootCmd.AddCommand(exploreCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")

	ds, err := source.LoadDataset(args[0])
	if err != nil {
		return err
	}

	store, err := source.OpenBadger(dataDir, false)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Import(ds); err != nil {
		return fmt.Errorf("importing dataset: %w", err)
	}

	fmt.Printf("Imported %d entities, %d edges into %s\n",
		len(ds.Entities), len(ds.Edges), dataDir)
	return nil
}

func runExplore(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.Printf("bifrost: %s", cfg)

	src, err := openSource(cmd)
	if err != nil {
		return err
	}
	defer src.Close()

	initialQuery := "BRCA1"
	if len(args) == 1 {
		initialQuery = args[0]
	}

	return runTUI(src, cfg, initialQuery)
}

// openSource picks the backend: a badger directory when given, otherwise a
// JSON dataset file, otherwise the bundled demo.
func openSource(cmd *cobra.Command) (source.Source, error) {
	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		return source.OpenBadger(dataDir, false)
	}

	var ds *source.Dataset
	if path, _ := cmd.Flags().GetString("dataset"); path != "" {
		loaded, err := source.LoadDataset(path)
		if err != nil {
			return nil, err
		}
		ds = loaded
	} else {
		loaded, err := source.ParseDataset(demoDataset)
		if err != nil {
			return nil, fmt.Errorf("bundled demo dataset: %w", err)
		}
		ds = loaded
	}

	mem := source.NewMemorySource()
	ds.Populate(mem)
	return mem, nil
}
