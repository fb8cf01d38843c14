package main

import (
	"fmt"

	"github.com/clarabennett2626/logtail/internal/config"
	"github.com/spf13/cobra"
)

func newRootCommand(env runEnv) *cobra.Command {
	var configPath string
	flagCfg := config.Default()

	cmd := &cobra.Command{
		Use:           "logtail [flags] <directory>",
		Short:         "Tail multiple log files in a directory",
		Args:          cobra.MaximumNArgs(1),
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, configPath, flagCfg, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, env)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	flags.StringVarP(&flagCfg.Extension, "extension", "e", flagCfg.Extension, "file extension to tail")
	flags.DurationVar(&flagCfg.Cooldown, "cooldown", flagCfg.Cooldown, "delay after each change notification")
	flags.BoolVar(&flagCfg.Recursive, "recursive", flagCfg.Recursive, "watch subdirectories")
	flags.BoolVar(&flagCfg.DetectTruncation, "detect-truncation", flagCfg.DetectTruncation, "re-read files truncated in place from the start")
	flags.IntVar(&flagCfg.MaxReadFailures, "max-read-failures", flagCfg.MaxReadFailures, "drop a file after this many consecutive read errors (0 = never)")
	flags.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel, "diagnostic log level (trace, debug, info, warning, error)")
	flags.StringVar(&flagCfg.LogFormat, "log-format", flagCfg.LogFormat, "diagnostic log format (text, json)")
	flags.StringVar(&flagCfg.Theme, "theme", flagCfg.Theme, "color theme (dark, light)")
	flags.BoolVar(&flagCfg.Plain, "plain", flagCfg.Plain, "disable colors")
	flags.BoolVar(&flagCfg.StripANSI, "strip-ansi", flagCfg.StripANSI, "remove ANSI escape codes from tailed content")
	flags.BoolVar(&flagCfg.TUI, "tui", flagCfg.TUI, "interactive scrolling view (requires a terminal)")

	return cmd
}

// resolveConfig layers the config file (if any), explicitly set flags and
// the positional directory, in increasing precedence.
func resolveConfig(cmd *cobra.Command, configPath string, flagCfg config.Config, args []string) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("extension") {
		cfg.Extension = flagCfg.Extension
	}
	if flags.Changed("cooldown") {
		cfg.Cooldown = flagCfg.Cooldown
	}
	if flags.Changed("recursive") {
		cfg.Recursive = flagCfg.Recursive
	}
	if flags.Changed("detect-truncation") {
		cfg.DetectTruncation = flagCfg.DetectTruncation
	}
	if flags.Changed("max-read-failures") {
		cfg.MaxReadFailures = flagCfg.MaxReadFailures
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagCfg.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = flagCfg.LogFormat
	}
	if flags.Changed("theme") {
		cfg.Theme = flagCfg.Theme
	}
	if flags.Changed("plain") {
		cfg.Plain = flagCfg.Plain
	}
	if flags.Changed("strip-ansi") {
		cfg.StripANSI = flagCfg.StripANSI
	}
	if flags.Changed("tui") {
		cfg.TUI = flagCfg.TUI
	}

	if len(args) == 1 {
		cfg.Directory = args[0]
	}
	return cfg, nil
}
