package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"flowsema/internal/config"
)

// activeConfig is the merged configuration of the running command.
var activeConfig = config.Default()

// resolveConfig loads flowcheck.toml (--config, or the nearest one above the
// working directory) and lets explicitly given flags override it.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}

	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		wd, wdErr := os.Getwd()
		if wdErr != nil {
			return config.Config{}, wdErr
		}
		cfg, err = config.Discover(wd)
	}
	if err != nil {
		return config.Config{}, err
	}
	if err := applyFlags(flags, &cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	set := func(name string, apply func() error) {
		if err != nil || !changed(flags, name) {
			return
		}
		if applyErr := apply(); applyErr != nil {
			err = fmt.Errorf("failed to get %s flag: %w", name, applyErr)
		}
	}
	set("max-diagnostics", func() (e error) { cfg.Diagnostics.Max, e = flags.GetInt("max-diagnostics"); return })
	set("warnings-as-errors", func() (e error) {
		cfg.Diagnostics.WarningsAsErrors, e = flags.GetBool("warnings-as-errors")
		if cfg.Diagnostics.WarningsAsErrors {
			cfg.Diagnostics.NoWarnings = false
		}
		return
	})
	set("no-warnings", func() (e error) {
		cfg.Diagnostics.NoWarnings, e = flags.GetBool("no-warnings")
		if cfg.Diagnostics.NoWarnings && !changed(flags, "warnings-as-errors") {
			cfg.Diagnostics.WarningsAsErrors = false
		}
		return
	})
	set("jobs", func() (e error) { cfg.Analysis.Jobs, e = flags.GetInt("jobs"); return })
	set("discriminate-generics", func() (e error) {
		cfg.Analysis.DiscriminateGenerics, e = flags.GetBool("discriminate-generics")
		return
	})
	set("fragile", func() (e error) { cfg.Analysis.FragileAnnotation, e = flags.GetString("fragile"); return })
	set("trace", func() (e error) { cfg.Trace.Output, e = flags.GetString("trace"); return })
	set("trace-level", func() (e error) { cfg.Trace.Level, e = flags.GetString("trace-level"); return })
	set("trace-mode", func() (e error) { cfg.Trace.Mode, e = flags.GetString("trace-mode"); return })
	set("trace-format", func() (e error) { cfg.Trace.Format, e = flags.GetString("trace-format"); return })
	if err != nil {
		return err
	}

	if cfg.Diagnostics.WarningsAsErrors && cfg.Diagnostics.NoWarnings {
		return fmt.Errorf("no-warnings and warnings-as-errors cannot be used together")
	}
	if cfg.Diagnostics.Max < 0 {
		return fmt.Errorf("--max-diagnostics must not be negative")
	}
	if cfg.Analysis.Jobs < 0 {
		return fmt.Errorf("--jobs must not be negative")
	}
	return nil
}

func changed(flags *pflag.FlagSet, name string) bool {
	f := flags.Lookup(name)
	return f != nil && f.Changed
}
