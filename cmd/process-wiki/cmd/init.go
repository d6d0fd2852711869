package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wikivault/process-wiki/configs"
)

// newConfigCmd groups template-scaffolding subcommands so operators don't
// have to hand-write a process-wiki.yaml or persona file from scratch.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Scaffold configuration files",
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newPersonaInitCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented process-wiki.yaml template",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeTemplate(cmd, path, configs.RunConfigTemplate)
		},
	}
	cmd.Flags().StringVar(&path, "output", "process-wiki.yaml", "Path to write the config template")
	return cmd
}

func newPersonaInitCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "persona-init",
		Short: "Write a sample persona definition for the query command",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeTemplate(cmd, path, configs.PersonaTemplate)
		},
	}
	cmd.Flags().StringVar(&path, "output", "persona.yaml", "Path to write the persona template")
	return cmd
}

func writeTemplate(cmd *cobra.Command, path, contents string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}
