package main

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/pagewalk/internal/config"
)

//go:embed templates/pagewalk.yaml
var configTemplate embed.FS

const templatePath = "templates/pagewalk.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter site file",
		Long: `Init writes a commented .pagewalk site file with default settings, one
Perseus Digital Library site and an example of every site option.

Examples:
  # Create .pagewalk in the current directory
  pagewalk init

  # Write it somewhere else, replacing an existing file
  pagewalk init -o ~/.config/pagewalk/config.yaml -f

  # Print the template instead of writing it
  pagewalk init --stdout`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile, "Path of the site file to write")
	cmd.Flags().BoolP("force", "f", false, "Replace an existing file")
	cmd.Flags().Bool("stdout", false, "Print the template to stdout")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	template, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if toStdout, _ := cmd.Flags().GetBool("stdout"); toStdout {
		_, err := cmd.OutOrStdout().Write(template)
		return err
	}

	path, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if err := writeSiteFile(path, template, force); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "Add the sites you want to crawl, then run:\n  pagewalk crawl <site-name>")
	return nil
}

// writeSiteFile writes content to path with owner-only permissions, since
// site files may hold session cookies. An existing file is kept unless
// force is set.
func writeSiteFile(path string, content []byte, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}
