// Package cmd is gensynth's CLI surface: introspect, validate, and
// generate.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	version = "0.2.0"
)

var rootCmd = &cobra.Command{
	Use:   "gensynth",
	Short: "Deterministic synthetic-data generation for relational databases",
	Long: `gensynth introspects a Postgres schema, validates a generation plan
against it, and materializes deterministic CSV datasets that satisfy the
schema's PK/UNIQUE/NOT NULL/FK/CHECK constraints.`,
	Run: func(cmd *cobra.Command, args []string) {
		showVersion, _ := cmd.Flags().GetBool("version")
		if showVersion {
			fmt.Printf("gensynth version %s\n", version)
			return
		}
		cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(loadDotenv)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./gensynth.config.json)")
	rootCmd.Flags().BoolP("version", "v", false, "print gensynth's version")
}

func loadDotenv() {
	if err := godotenv.Load(); err != nil {
		godotenv.Load(".env.local")
	}
}

func fail(err error) {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: ")
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
