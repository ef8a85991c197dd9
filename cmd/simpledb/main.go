// Command simpledb is an operational CLI around the engine: loading a
// catalog file, scanning a table, printing its statistics, and driving
// the B+ tree concurrency stress scenario. It does not parse SQL — per
// spec, query construction is a library concern, not this CLI's.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simpledb/internal/cli"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	root := &cobra.Command{
		Use:   "simpledb",
		Short: "SimpleDB engine command-line tooling",
	}

	root.AddCommand(cli.NewCatalogCmd(log))
	root.AddCommand(cli.NewScanCmd(log))
	root.AddCommand(cli.NewStatsCmd(log))
	root.AddCommand(cli.NewBTreeStressCmd(log))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
