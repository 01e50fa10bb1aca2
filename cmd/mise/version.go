package main

import (
	"fmt"

	"github.com/aretw0/mise"
	"github.com/aretw0/mise/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of mise",
	Run: func(cmd *cobra.Command, args []string) {
		if banner, _ := cmd.Flags().GetBool("banner"); banner {
			tui.PrintBanner(cmd.OutOrStdout(), mise.Version)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "mise version %s\n", mise.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("banner", false, "Print the banner too")
}
