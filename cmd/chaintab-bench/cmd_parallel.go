package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdParallel = &cobra.Command{
	Use:   "parallel",
	Short: "Time ParallelAppend against sequential Append",
	Long: `
The "parallel" command appends --entries keys in batches of --batch-size, once
through sequential Append calls and once through ParallelAppend, which copies
and links the batches from GOMAXPROCS goroutines.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runParallel(cmd.Context(), parallelOptions)
	},
}

// ParallelOptions bundles all options for the parallel command.
type ParallelOptions struct {
	Entries   int
	BatchSize int
}

var parallelOptions ParallelOptions

func init() {
	cmdRoot.AddCommand(cmdParallel)

	f := cmdParallel.Flags()
	f.IntVarP(&parallelOptions.Entries, "entries", "n", 1_000_000, "number of keys to append")
	f.IntVar(&parallelOptions.BatchSize, "batch-size", 50_000, "keys per batch")
}

func runParallel(ctx context.Context, opts ParallelOptions) error {
	if opts.Entries < 0 || opts.BatchSize <= 0 {
		return errors.Errorf("invalid sizes: entries %d, batch size %d",
			opts.Entries, opts.BatchSize)
	}

	keys, values := makeKeys(0, opts.Entries)
	kb, vb := splitBatches(keys, values, opts.BatchSize)

	seq := newTable()
	if err := seq.SetCapacity(len(keys)); err != nil {
		return err
	}
	if err := timed("sequential append", len(keys), func() error {
		for i := range kb {
			if err := seq.Append(kb[i], vb[i]); err != nil {
				return errors.Wrapf(err, "batch %d", i)
			}
		}
		return nil
	}); err != nil {
		return err
	}

	par := newTable()
	if err := timed("parallel append", len(keys), func() error {
		return par.ParallelAppend(ctx, kb, vb)
	}); err != nil {
		return err
	}
	report(par)

	if seq.Count() != par.Count() {
		return errors.Errorf("count mismatch: sequential %d, parallel %d",
			seq.Count(), par.Count())
	}
	return nil
}
