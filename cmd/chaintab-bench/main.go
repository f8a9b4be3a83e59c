package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// GlobalOptions holds flags shared by every command.
type GlobalOptions struct {
	Verbose bool
	Seed    uint64
	Checks  bool
}

var globalOptions GlobalOptions

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "chaintab-bench",
	Short: "Time the bulk load paths of chaintab tables",
	Long: `
chaintab-bench fills chaintab tables with synthetic integer keys and reports how
long the bulk paths (ClearAndLoad, Append, parallel append) take compared to
inserting the same keys one at a time with Add.
`,
	Version:           version,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		if globalOptions.Verbose {
			log.SetLevel(log.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

func init() {
	f := cmdRoot.PersistentFlags()
	f.BoolVarP(&globalOptions.Verbose, "verbose", "v", false, "log table diagnostics")
	f.Uint64Var(&globalOptions.Seed, "seed", 1, "seed for key shuffling and table hashing")
	f.BoolVar(&globalOptions.Checks, "checks", false, "validate bulk load contracts")
}

func main() {
	if err := cmdRoot.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
