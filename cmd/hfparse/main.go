package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:               "hfparse",
		Short:             "Natural-language command parser for a two-handed robot",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: a.teardown,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&a.configPath, "config", "hfparse.yaml", "Project config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(parseCmd(a))
	root.AddCommand(replCmd(a))
	root.AddCommand(corpusCmd(a))
	root.AddCommand(groundCmd(a))
	root.AddCommand(describeCmd(a))
	root.AddCommand(validateCmd(a))
	root.AddCommand(batchCmd(a))
	root.AddCommand(historyCmd(a))
	root.AddCommand(serveCmd(a))
	root.AddCommand(initCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
