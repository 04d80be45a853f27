// Package main provides the ifcheck binary entry point.
// Ifcheck parses STEP-encoded IFC model files, validates them against the
// embedded schema definitions and reports bound property sets.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/asakaida/ifcheck/internal/infrastructure/config"
	"github.com/asakaida/ifcheck/internal/schema"
	"github.com/asakaida/ifcheck/internal/services"
	"github.com/asakaida/ifcheck/pkg/cache/memorycache"
)

const (
	Version    = "0.1.0"
	defaultEnv = "dev"
)

// Exit codes: 0 all files valid, 1 at least one file invalid or unreadable,
// 2 usage errors (bad path, bad flag value).
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func usageErr(format string, args ...interface{}) error {
	return &exitCodeError{code: 2, err: fmt.Errorf(format, args...)}
}

func main() {
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	if err := config.InitConfig(env); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := rootCmd(cfg).Execute(); err != nil {
		code := 1
		var ec *exitCodeError
		if errors.As(err, &ec) {
			code = ec.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(code)
	}
}

func rootCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ifcheck",
		Short:         "IFC model validator and property set reporter",
		Long:          "Ifcheck parses STEP-encoded IFC files, checks them against the embedded schema definitions (structural checks plus optional EXPRESS WHERE rules) and reports the property sets bound to model objects.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(validateCmd(cfg))
	cmd.AddCommand(psetsCmd(cfg))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ifcheck version %s\n", Version)
		},
	})
	return cmd
}

func validateCmd(cfg *config.Config) *cobra.Command {
	var (
		recursive    bool
		expressRules bool
		maxIssues    int
		outputDir    string
	)

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate IFC files and write verification reports",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxIssues < 1 {
				return usageErr("--max-issues must be >= 1")
			}
			files, err := resolveInputs(args, recursive)
			if err != nil {
				return err
			}
			return runValidate(cmd.Context(), cfg, files, expressRules, maxIssues, outputDir)
		},
	}

	cmd.Flags().BoolVar(&recursive, "recursive", false, "Search for IFC files recursively")
	cmd.Flags().BoolVar(&expressRules, "express-rules", cfg.Run.ExpressRules, "Run EXPRESS WHERE rules (fuller validation)")
	cmd.Flags().IntVar(&maxIssues, "max-issues", cfg.Run.MaxIssues, "Maximum issues printed per file")
	cmd.Flags().StringVar(&outputDir, "output-dir", cfg.Run.OutputDir, "Directory for report files (default: next to each input)")
	return cmd
}

func psetsCmd(cfg *config.Config) *cobra.Command {
	var (
		recursive     bool
		maxProperties int
		outputDir     string
	)

	cmd := &cobra.Command{
		Use:   "psets [path]",
		Short: "Report property sets bound to model objects",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxProperties < 1 {
				return usageErr("--max-properties must be >= 1")
			}
			files, err := resolveInputs(args, recursive)
			if err != nil {
				return err
			}
			return runPsets(cmd.Context(), cfg, files, maxProperties, outputDir)
		},
	}

	cmd.Flags().BoolVar(&recursive, "recursive", false, "Search for IFC files recursively")
	cmd.Flags().IntVar(&maxProperties, "max-properties", cfg.Run.MaxProperties, "Maximum property names printed per set")
	cmd.Flags().StringVar(&outputDir, "output-dir", cfg.Run.OutputDir, "Directory for report files (default: next to each input)")
	return cmd
}

// resolveInputs turns the optional path argument into a sorted file list.
// A file path yields itself; a directory is scanned for .ifc files.
func resolveInputs(args []string, recursive bool) ([]string, error) {
	path := "."
	if len(args) == 1 {
		path = args[0]
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, usageErr("path does not exist: %s", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	files, err := services.FindModelFiles(path, recursive)
	if err != nil {
		return nil, usageErr("failed to scan %s: %v", path, err)
	}
	if len(files) == 0 {
		return nil, usageErr("no IFC files found in %s", path)
	}
	return files, nil
}

// newLoader builds a schema loader from the cache settings. A disabled cache
// keeps at most one registry and expires it immediately, so every file pays
// the full load.
func newLoader(cfg *config.Config) *schema.Loader {
	cacheCfg := &memorycache.Config{MaxEntries: 1, DefaultTTL: time.Nanosecond}
	if cfg.Cache.Enabled {
		cacheCfg = &memorycache.Config{
			MaxEntries: cfg.Cache.MaxEntries,
			DefaultTTL: time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
		}
	}
	return schema.NewLoaderWithCache(memorycache.New(cacheCfg))
}

func ensureOutputDir(outputDir string) error {
	if outputDir == "" {
		return nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return usageErr("failed to create output directory %s: %v", outputDir, err)
	}
	return nil
}

func runValidate(ctx context.Context, cfg *config.Config, files []string, expressRules bool, maxIssues int, outputDir string) error {
	if err := ensureOutputDir(outputDir); err != nil {
		return err
	}

	log.Printf("Found %d IFC file(s), EXPRESS rules: %v", len(files), expressRules)
	service := services.NewCheckService(newLoader(cfg), cfg.Run.Workers)

	invalid := 0
	var reports []string
	for _, file := range files {
		result := service.ValidateFile(ctx, &services.ValidateRequest{
			Path:         file,
			ExpressRules: expressRules,
			MaxIssues:    maxIssues,
		})
		for _, line := range result.Lines {
			fmt.Println(line)
		}
		if result.Invalid() {
			invalid++
		}

		reportPath := services.ReportPath(outputDir, file, "_VERIFICATION.txt")
		if err := services.WriteReport(reportPath, result.Lines); err != nil {
			return fmt.Errorf("failed to write report for %s: %w", file, err)
		}
		reports = append(reports, reportPath)
	}

	fmt.Println()
	fmt.Println("=== SUMMARY ===")
	fmt.Printf("Files checked: %d\n", len(files))
	fmt.Printf("Files invalid: %d\n", invalid)
	fmt.Printf("Files valid: %d\n", len(files)-invalid)
	fmt.Println("Reports:")
	for _, report := range reports {
		fmt.Printf("- %s\n", report)
	}

	if invalid > 0 {
		return &exitCodeError{code: 1, err: fmt.Errorf("%d of %d file(s) invalid", invalid, len(files))}
	}
	return nil
}

func runPsets(ctx context.Context, cfg *config.Config, files []string, maxProperties int, outputDir string) error {
	if err := ensureOutputDir(outputDir); err != nil {
		return err
	}

	log.Printf("Found %d IFC file(s)", len(files))
	service := services.NewCheckService(newLoader(cfg), cfg.Run.Workers)

	failed := 0
	for _, file := range files {
		result := service.PsetsFile(ctx, &services.PsetsRequest{
			Path:          file,
			MaxProperties: maxProperties,
		})
		reportPath := services.ReportPath(outputDir, file, "_PROPERTYSETS.txt")
		if err := services.WriteReport(reportPath, result.Lines); err != nil {
			return fmt.Errorf("failed to write report for %s: %w", file, err)
		}
		if result.Err != nil {
			failed++
			log.Printf("FAIL: %s -> %s (%v)", file, reportPath, result.Err)
		} else {
			log.Printf("OK: %s -> %s", file, reportPath)
		}
	}

	fmt.Println()
	fmt.Println("=== SUMMARY ===")
	fmt.Printf("Files processed: %d\n", len(files))
	fmt.Printf("Reports OK: %d\n", len(files)-failed)
	fmt.Printf("Reports failed: %d\n", failed)

	if failed > 0 {
		return &exitCodeError{code: 1, err: fmt.Errorf("%d of %d file(s) failed", failed, len(files))}
	}
	return nil
}
