package main

import (
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the effective profile as TOML",
	Long: `The profile command prints the profile a run would use: the file
named by --profile over the built-in defaults, or the defaults alone.

Example:
  heapctl profile > heap.toml
  heapctl profile --profile heap.toml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProfile()
		if err != nil {
			return err
		}
		return cfg.Encode(stdout)
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
}
