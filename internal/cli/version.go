package cli

import (
	"github.com/spf13/cobra"

	"imcreg/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOut {
			return printJSON(version.Get())
		}
		printInfo("%s %s\n", version.Name, version.Version)
		printInfo("  commit: %s\n", version.GitCommit)
		printInfo("  built: %s\n", version.BuildTime)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
