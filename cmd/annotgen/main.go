package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/origadmin/annotgen/internal/config"
	"github.com/origadmin/annotgen/internal/types"
)

var (
	version   = "0.0.1"
	commit    = ""
	treeState = ""
	date      = ""
	builtBy   = ""
)

func main() {
	err := newRootCmd().Execute()
	closeLog()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           types.Application,
		Short:         "Insert design-template comments into source files",
		Long:          types.Description,
		Version:       buildVersion(version, commit, date, builtBy, treeState).GitVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeLog()
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to a TOML configuration file. Defaults to ./"+config.DefaultFile+" when present.")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("log-file", "", "Path to a file where logs should be written. If empty, logs go to stderr.")
	flags.String("log-format", "", "Log format: text or json")

	root.AddCommand(
		newAnnotateCmd(),
		newInspectCmd(),
		newDumpCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}
