package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"simpledb/pkg/dbcore"
	"simpledb/pkg/exec"
	"simpledb/pkg/txn"
)

// NewScanCmd builds `simpledb scan <table>`: runs a bare SeqScan over a
// previously loaded table and prints every tuple.
func NewScanCmd(log *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <table>",
		Short: "Sequentially scan a loaded table and print its tuples",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runScan(log, args[0])
		},
	}
}

func runScan(log *zap.Logger, tableName string) error {
	db := dbcore.Instance()
	t, err := db.Catalog.TableByName(tableName)
	if err != nil {
		return err
	}

	tid := txn.New()
	scan := exec.NewSeqScan(tid, db.Pool, t.File, tableName)
	if err := scan.Open(); err != nil {
		return err
	}
	defer scan.Close()

	n := 0
	for {
		has, err := scan.HasNext()
		if err != nil {
			return err
		}
		if !has {
			break
		}
		tup, err := scan.Next()
		if err != nil {
			return err
		}
		fmt.Println(tup.String())
		n++
	}

	return db.Pool.TransactionComplete(tid, true)
}
