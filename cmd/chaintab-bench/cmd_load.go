package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdLoad = &cobra.Command{
	Use:   "load",
	Short: "Compare ClearAndLoad with per-key Add",
	Long: `
The "load" command fills an empty table with --entries keys, once with Add
in a loop and once with a single ClearAndLoad, and logs both timings.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLoad(loadOptions)
	},
}

// LoadOptions bundles all options for the load command.
type LoadOptions struct {
	Entries int
}

var loadOptions LoadOptions

func init() {
	cmdRoot.AddCommand(cmdLoad)

	f := cmdLoad.Flags()
	f.IntVarP(&loadOptions.Entries, "entries", "n", 1_000_000, "number of keys to load")
}

func runLoad(opts LoadOptions) error {
	if opts.Entries < 0 {
		return errors.Errorf("invalid --entries %d", opts.Entries)
	}
	keys, values := makeKeys(0, opts.Entries)

	baseline := newTable()
	if err := timed("add", len(keys), func() error {
		return addAll(baseline, keys, values)
	}); err != nil {
		return errors.Wrap(err, "add")
	}

	t := newTable()
	if err := timed("clear-and-load", len(keys), func() error {
		return t.ClearAndLoad(keys, values)
	}); err != nil {
		return errors.Wrap(err, "clear and load")
	}
	report(t)

	// a second load reuses the capacity of the first
	if err := timed("clear-and-load (warm)", len(keys), func() error {
		return t.ClearAndLoad(keys, values)
	}); err != nil {
		return errors.Wrap(err, "clear and load")
	}
	return nil
}
