package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/livefir/livelayout"
	"github.com/livefir/livelayout/internal/config"
)

func newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a decorated page",
		Long: `Loads <template> from the template directory, applies its decorators and
fragments, and writes the resulting HTML to stdout or --out.`,
		Args: cobra.ExactArgs(1),
		RunE: runRender,
	}
	cmd.Flags().Bool("minify", false, "minify the rendered HTML")
	cmd.Flags().StringP("out", "o", "", "write to this file instead of stdout")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [template...]",
		Short: "Check that pages decorate without errors",
		Long:  `Decorates each template without writing output. With no arguments every template in the directory is checked.`,
		RunE:  runCheck,
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("minify") {
		cfg.Minify, _ = cmd.Flags().GetBool("minify")
	}

	engine, err := livelayout.New(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	html, err := engine.RenderString(cmd.Context(), templateName(args[0], cfg.Suffix))
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), html)
		return err
	}
	if err := os.WriteFile(out, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	engine, err := livelayout.New(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	names := make([]string, 0, len(args))
	for _, arg := range args {
		names = append(names, templateName(arg, cfg.Suffix))
	}
	if len(names) == 0 {
		if names, err = engine.Templates(); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, name := range names {
		if err := engine.Render(cmd.Context(), name, io.Discard); err != nil {
			fmt.Fprintf(out, "ERROR in %s: %v\n", name, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "OK: %s\n", name)
	}

	stats := engine.Stats(0)
	fmt.Fprintf(out, "%d decorations, %.1f%% decoration errors, %.1f%% template cache hits\n",
		stats.Metrics.Decorations, stats.ErrorRate, stats.CacheHitRate)

	if failed > 0 {
		return fmt.Errorf("%d of %d templates failed", failed, len(names))
	}
	return nil
}

// loadConfig reads the configuration named by --config, or the one in the
// template directory, and applies --dir and --debug over it.
func loadConfig(cmd *cobra.Command) (*livelayout.Config, error) {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	path, _ := flags.GetString("config")
	debug, _ := flags.GetBool("debug")

	if path == "" {
		base := dir
		if base == "" {
			base = "."
		}
		candidate := filepath.Join(base, config.DefaultFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	cfg, err := livelayout.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	switch {
	case dir != "":
		cfg.TemplateDir = dir
	case path != "" && !filepath.IsAbs(cfg.TemplateDir):
		// relative to the configuration file
		cfg.TemplateDir = filepath.Join(filepath.Dir(path), cfg.TemplateDir)
	}
	if debug {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	return cfg, cfg.Validate()
}

// templateName accepts both "page" and "page.html"
func templateName(arg, suffix string) string {
	if suffix == "" {
		return arg
	}
	return strings.TrimSuffix(filepath.ToSlash(arg), suffix)
}
