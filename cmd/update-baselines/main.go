package main

import (
	"flag"
	"fmt"
	"os"

	"vizloop/pkg/baseline"
	"vizloop/pkg/config"
)

// Simple tool to accept the latest loop captures as new baselines
func main() {
	configPath := flag.String("config", "", "config file")
	loopDir := flag.String("loop-dir", "", "loop storage directory (default <out_root>/loop)")
	flag.Usage = func() {
		fmt.Println("Baseline updater for vizloop")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/update-baselines [flags] <name>...")
		fmt.Println("  go run ./cmd/update-baselines [flags] all")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  go run ./cmd/update-baselines home_screen")
		fmt.Println("  go run ./cmd/update-baselines -loop-dir .vizloop/loop all")
		fmt.Println()
		fmt.Println("Or update while diffing:")
		fmt.Println("  vizloop loop <current.png> <name> --update-baseline")
		fmt.Println()
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	dir := *loopDir
	if dir == "" {
		dir = cfg.LoopDir
	}
	store := &baseline.Store{Root: baseline.ResolveDir(cfg.OutRoot, dir)}

	names := flag.Args()
	if len(names) == 1 && names[0] == "all" {
		names, err = store.LatestNames()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if err := promote(store, names); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ %d baseline(s) updated\n", len(names))
}

func promote(store *baseline.Store, names []string) error {
	for _, name := range names {
		path, err := store.Promote(name)
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", name, err)
		}
		fmt.Printf("Updated: %s\n", path)
	}
	return nil
}
