package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/natal-engine/internal/ephemeris"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of natal-engine",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("natal-engine %s\n", version)
		if h, err := ephemeris.LoadDefault(); err == nil {
			fmt.Printf("ephemeris: %s, %s (%s)\n", h.Name(), h.Theory(), h.Source())
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
