package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simpledb/pkg/dbcore"
	"simpledb/pkg/stats"
)

// NewStatsCmd builds `simpledb stats <table>`: computes (or reuses) a
// table's TableStats and prints cardinality and scan-cost estimates in
// human-readable form.
func NewStatsCmd(log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <table>",
		Short: "Compute and print a loaded table's statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runStats(log, args[0])
		},
	}
}

func runStats(log *zap.Logger, tableName string) error {
	db := dbcore.Instance()
	t, err := db.Catalog.TableByName(tableName)
	if err != nil {
		return err
	}

	ts, ok := db.TableStats(t.ID)
	if !ok {
		ts, err = stats.NewTableStats(t.File, db.Pool)
		if err != nil {
			return err
		}
		db.SetTableStats(t.ID, ts)
	}

	fmt.Printf("table %q: %s tuples across %s pages, estimated scan cost %.1f\n",
		tableName, humanize.Comma(int64(ts.NumTuples())), humanize.Comma(int64(ts.NumPages())), ts.EstimateScanCost())
	return nil
}
