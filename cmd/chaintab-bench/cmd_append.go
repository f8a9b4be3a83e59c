package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdAppend = &cobra.Command{
	Use:   "append",
	Short: "Time Append of successive batches",
	Long: `
The "append" command preloads --base keys and then appends --entries more keys
in batches of --batch-size, logging the total time of the Append calls.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAppend(appendOptions)
	},
}

// AppendOptions bundles all options for the append command.
type AppendOptions struct {
	Base      int
	Entries   int
	BatchSize int
}

var appendOptions AppendOptions

func init() {
	cmdRoot.AddCommand(cmdAppend)

	f := cmdAppend.Flags()
	f.IntVar(&appendOptions.Base, "base", 100_000, "number of keys loaded before appending")
	f.IntVarP(&appendOptions.Entries, "entries", "n", 1_000_000, "number of keys to append")
	f.IntVar(&appendOptions.BatchSize, "batch-size", 10_000, "keys per Append call")
}

func runAppend(opts AppendOptions) error {
	if opts.Base < 0 || opts.Entries < 0 || opts.BatchSize <= 0 {
		return errors.Errorf("invalid sizes: base %d, entries %d, batch size %d",
			opts.Base, opts.Entries, opts.BatchSize)
	}

	t := newTable()
	keys, values := makeKeys(0, opts.Base)
	if err := t.ClearAndLoad(keys, values); err != nil {
		return errors.Wrap(err, "preload")
	}

	keys, values = makeKeys(opts.Base, opts.Entries)
	kb, vb := splitBatches(keys, values, opts.BatchSize)
	if err := timed("append", len(keys), func() error {
		for i := range kb {
			if err := t.Append(kb[i], vb[i]); err != nil {
				return errors.Wrapf(err, "batch %d", i)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	report(t)
	return nil
}
