package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/fixeval/internal/config"
	"github.com/ludo-technologies/fixeval/internal/constants"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a fixeval configuration file",
		Long: `Generate a documented fixeval configuration file with sensible defaults.

By default, creates fixeval.yaml in the current directory with full
documentation. Use --interactive for a guided setup wizard.

Examples:
  # Create fixeval.yaml in current directory
  fixeval init

  # Custom output path
  fixeval init --config ci/fixeval.yaml

  # Overwrite existing file
  fixeval init --force

  # Weight correctness more heavily
  fixeval init --preset correctness-first

  # Generate smaller config with essential options only
  fixeval init --minimal

  # Interactive setup wizard
  fixeval init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("config", "c", constants.ConfigFileName,
		"Output path for the config file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing config file")
	cmd.Flags().Bool("minimal", false,
		"Generate minimal config with essential options only")
	cmd.Flags().String("preset", string(config.PresetBalanced),
		"Metric weighting: balanced, correctness-first, quality-first")
	cmd.Flags().BoolP("interactive", "i", false,
		"Interactive setup wizard")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")
	minimal, _ := cmd.Flags().GetBool("minimal")
	preset, _ := cmd.Flags().GetString("preset")
	interactive, _ := cmd.Flags().GetBool("interactive")

	opts := config.DefaultTemplateOptions()
	opts.Preset = config.WeightPreset(preset)
	if _, ok := config.GetWeightPresets()[opts.Preset]; !ok {
		return fmt.Errorf("unknown preset %q, must be one of: balanced, correctness-first, quality-first", preset)
	}

	if interactive {
		var err error
		opts, configPath, err = runInteractiveSetup(configPath)
		if err != nil {
			return err
		}
	}

	// Check if file exists
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
		}
	}

	// Check if parent directory exists
	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
	}

	var content string
	if minimal {
		content = config.GetMinimalConfigTemplate()
	} else {
		content = config.GetFullConfigTemplate(opts)
	}

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	displayPath := configPath
	if absPath, err := filepath.Abs(configPath); err == nil {
		displayPath = absPath
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", displayPath)
	fmt.Fprintln(out, "\nRun 'fixeval prepare --repo <owner/name> --pr <n>' to brief the judge.")

	return nil
}

func runInteractiveSetup(defaultConfigPath string) (config.TemplateOptions, string, error) {
	opts := config.DefaultTemplateOptions()

	fmt.Println()
	fmt.Println("fixeval Configuration Setup")
	fmt.Println("===========================")
	fmt.Println()

	presets := []struct {
		Label       string
		Description string
		Value       config.WeightPreset
	}{
		{"Balanced (recommended)", "Correctness 30%, the other five metrics 10-15%", config.PresetBalanced},
		{"Correctness first", "Correctness 45%, for fixes where behaviour matters most", config.PresetCorrectnessFirst},
		{"Quality first", "Cleanliness and complexity weigh as much as completeness", config.PresetQualityFirst},
	}

	presetTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
		Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	presetPrompt := promptui.Select{
		Label:     "How should the metrics be weighted?",
		Items:     presets,
		Templates: presetTemplates,
	}

	presetIdx, _, err := presetPrompt.Run()
	if err != nil {
		return opts, "", fmt.Errorf("preset selection cancelled: %w", err)
	}
	opts.Preset = presets[presetIdx].Value

	fmt.Println()

	formatPrompt := promptui.Prompt{
		Label:   "Report formats (comma separated: html, json, markdown, text)",
		Default: strings.Join(opts.Formats, ","),
	}
	formatInput, err := formatPrompt.Run()
	if err != nil {
		return opts, "", fmt.Errorf("format input cancelled: %w", err)
	}
	if formats := splitList(formatInput); len(formats) > 0 {
		opts.Formats = formats
	}

	fmt.Println()

	outputPrompt := promptui.Prompt{
		Label:   "Output file path",
		Default: defaultConfigPath,
	}

	outputPath, err := outputPrompt.Run()
	if err != nil {
		return opts, "", fmt.Errorf("output path input cancelled: %w", err)
	}
	if outputPath == "" {
		outputPath = defaultConfigPath
	}

	fmt.Println()
	fmt.Printf("Creating %s... ", outputPath)

	return opts, outputPath, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
