package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestInitConfig_Defaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	if err := InitConfig("test"); err != nil {
		t.Fatalf("InitConfig() error = %v", err)
	}

	if viper.GetInt("MAX_ISSUES") != 10 {
		t.Errorf("MAX_ISSUES = %v, want 10", viper.GetInt("MAX_ISSUES"))
	}
	if viper.GetInt("MAX_PROPERTIES") != 30 {
		t.Errorf("MAX_PROPERTIES = %v, want 30", viper.GetInt("MAX_PROPERTIES"))
	}
	if viper.GetInt("WORKERS") < 1 {
		t.Errorf("WORKERS = %v, want >= 1", viper.GetInt("WORKERS"))
	}
	if viper.GetString("OUTPUT_DIR") != "" {
		t.Errorf("OUTPUT_DIR = %v, want empty", viper.GetString("OUTPUT_DIR"))
	}
	if viper.GetBool("EXPRESS_RULES") {
		t.Error("EXPRESS_RULES should default to false")
	}
	if !viper.GetBool("CACHE_ENABLED") {
		t.Error("CACHE_ENABLED should default to true")
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			setup: func() {
				viper.Reset()
				viper.SetDefault("MAX_ISSUES", 10)
				viper.SetDefault("MAX_PROPERTIES", 30)
				viper.SetDefault("WORKERS", 4)
				viper.SetDefault("CACHE_ENABLED", true)
				viper.SetDefault("CACHE_MAX_ENTRIES", 4)
				viper.SetDefault("CACHE_TTL_MINUTES", 60)
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Run.MaxIssues != 10 {
					t.Errorf("MaxIssues = %d, want 10", cfg.Run.MaxIssues)
				}
				if cfg.Run.Workers != 4 {
					t.Errorf("Workers = %d, want 4", cfg.Run.Workers)
				}
				if cfg.Cache.TTLMinutes != 60 {
					t.Errorf("TTLMinutes = %d, want 60", cfg.Cache.TTLMinutes)
				}
			},
		},
		{
			name: "environment override",
			setup: func() {
				viper.Reset()
				viper.SetDefault("MAX_ISSUES", 10)
				viper.SetDefault("MAX_PROPERTIES", 30)
				viper.Set("MAX_ISSUES", 3)
				viper.Set("EXPRESS_RULES", true)
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Run.MaxIssues != 3 {
					t.Errorf("MaxIssues = %d, want 3", cfg.Run.MaxIssues)
				}
				if !cfg.Run.ExpressRules {
					t.Error("ExpressRules should be true")
				}
			},
		},
		{
			name: "invalid max issues",
			setup: func() {
				viper.Reset()
				viper.Set("MAX_ISSUES", 0)
				viper.SetDefault("MAX_PROPERTIES", 30)
			},
			wantErr: true,
		},
		{
			name: "invalid max properties",
			setup: func() {
				viper.Reset()
				viper.SetDefault("MAX_ISSUES", 10)
				viper.Set("MAX_PROPERTIES", -1)
			},
			wantErr: true,
		},
		{
			name: "workers floor to one",
			setup: func() {
				viper.Reset()
				viper.SetDefault("MAX_ISSUES", 10)
				viper.SetDefault("MAX_PROPERTIES", 30)
				viper.Set("WORKERS", 0)
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Run.Workers != 1 {
					t.Errorf("Workers = %d, want floor of 1", cfg.Run.Workers)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer viper.Reset()

			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Load() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}
