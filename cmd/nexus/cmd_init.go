package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rrojashub-source/cerebro-nexus-sub001/pkg/config"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	written, err := config.InitConfig(path, forceInit)
	if err != nil {
		return err
	}
	if !written {
		fmt.Fprintf(out, "Config already exists at: %s (use --force to overwrite)\n", path)
		return nil
	}
	fmt.Fprintf(out, "Config initialized at: %s\n", path)
	fmt.Fprintln(out, "Edit this file to point brain.url at your memory API.")
	return nil
}
