/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "adsbridge",
	Short: "Ad mediation bridge for Lua scripts",
	Long: `adsbridge exposes an ad mediation SDK to Lua scripts as a plugin library
with init, load, show and isLoaded, and delivers every SDK callback back to the
script as an adsRequest event.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
