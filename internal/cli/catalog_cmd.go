// Package cli implements the simpledb command's subcommands, wiring
// the catalog, heap files, buffer pool and stats packages together
// behind cobra, grounded on the teacher's net/bufio-based server
// command in spirit (operational tooling over the engine) but reshaped
// around the spec's explicit non-SQL-parsing CLI.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simpledb/pkg/catalog"
	"simpledb/pkg/dbcore"
	"simpledb/pkg/storage/heap"
)

// NewCatalogCmd builds `simpledb catalog load <catalog-file>`: parses
// the catalog text format (spec §6), opens each table's `<name>.dat`
// heap file, and registers it with the process Database.
func NewCatalogCmd(log *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{Use: "catalog", Short: "Catalog operations"}

	load := &cobra.Command{
		Use:   "load <catalog-file>",
		Short: "Parse a catalog text file and register its tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runCatalogLoad(log, args[0])
		},
	}
	cmd.AddCommand(load)
	return cmd
}

func runCatalogLoad(log *zap.Logger, path string) error {
	parsed, err := catalog.ParseFile(path)
	if err != nil {
		return err
	}

	db := dbcore.Instance()
	fs := afero.NewOsFs()
	dir := filepath.Dir(path)

	for _, pt := range parsed {
		dataPath := catalog.DataFileName(dir, pt.Name)
		desc := pt.Schema()
		file, err := heap.NewFile(fs, dataPath, desc)
		if err != nil {
			return err
		}
		t := &catalog.Table{Name: pt.Name, ID: file.ID(), File: file, Schema: desc, PrimKey: pt.PrimKey}
		if err := db.Catalog.AddTable(t); err != nil {
			return err
		}
		log.Info("table loaded", zap.String("name", pt.Name), zap.String("file", dataPath))
		fmt.Printf("loaded table %q -> %s\n", pt.Name, dataPath)
	}
	return nil
}
