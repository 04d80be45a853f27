package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Run   RunConfig
	Cache CacheConfig
}

// RunConfig represents validation and report settings. Command-line flags
// override these values; the config supplies defaults for unset flags.
type RunConfig struct {
	MaxIssues     int    // Maximum issues printed per file
	MaxProperties int    // Maximum property names printed per set
	Workers       int    // Validation worker count per file
	OutputDir     string // Directory for report files
	ExpressRules  bool   // Run EXPRESS WHERE rules by default
}

// CacheConfig represents schema registry cache configuration
type CacheConfig struct {
	Enabled    bool
	MaxEntries int
	TTLMinutes int // Time-to-live for cached registries in minutes
}

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	// Walk up the directory tree until we find go.mod
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the root directory
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

// InitConfig initializes viper configuration
// env: environment name (dev, test, prod)
func InitConfig(env string) error {
	if env == "" {
		env = "dev"
	}

	// Set config file name based on environment
	viper.SetConfigName(fmt.Sprintf(".env.%s", env))
	viper.SetConfigType("env")
	if projectRoot, err := findProjectRoot(); err == nil {
		viper.AddConfigPath(projectRoot)
	}
	viper.AddConfigPath(".")

	// Read config file (optional, ignore error if not found)
	_ = viper.ReadInConfig()

	// Environment variables take precedence over config file
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("MAX_ISSUES", 10)
	viper.SetDefault("MAX_PROPERTIES", 30)
	viper.SetDefault("WORKERS", runtime.NumCPU())
	// Empty OUTPUT_DIR places each report next to its input file
	viper.SetDefault("OUTPUT_DIR", "")
	viper.SetDefault("EXPRESS_RULES", false)

	// Cache defaults
	viper.SetDefault("CACHE_ENABLED", true)
	viper.SetDefault("CACHE_MAX_ENTRIES", 4)
	viper.SetDefault("CACHE_TTL_MINUTES", 60)

	return nil
}

// Load loads configuration from viper
func Load() (*Config, error) {
	config := &Config{
		Run: RunConfig{
			MaxIssues:     viper.GetInt("MAX_ISSUES"),
			MaxProperties: viper.GetInt("MAX_PROPERTIES"),
			Workers:       viper.GetInt("WORKERS"),
			OutputDir:     viper.GetString("OUTPUT_DIR"),
			ExpressRules:  viper.GetBool("EXPRESS_RULES"),
		},
		Cache: CacheConfig{
			Enabled:    viper.GetBool("CACHE_ENABLED"),
			MaxEntries: viper.GetInt("CACHE_MAX_ENTRIES"),
			TTLMinutes: viper.GetInt("CACHE_TTL_MINUTES"),
		},
	}

	if config.Run.MaxIssues < 1 {
		return nil, fmt.Errorf("MAX_ISSUES must be >= 1")
	}
	if config.Run.MaxProperties < 1 {
		return nil, fmt.Errorf("MAX_PROPERTIES must be >= 1")
	}
	if config.Run.Workers < 1 {
		config.Run.Workers = 1
	}

	return config, nil
}
