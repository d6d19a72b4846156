package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/dd0wney/cluso-socialgraph/pkg/validation"
)

func loadDefaults(t *testing.T) Config {
	t.Helper()
	cfg, err := LoadFrom(viper.New())
	if err != nil {
		t.Fatalf("LoadFrom() returned unexpected error: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadDefaults(t)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"LogLevel", cfg.LogLevel, "info"},
		{"Input.Edges", cfg.Input.Edges, "User_Edge.csv"},
		{"Input.Nodes", cfg.Input.Nodes, "User_ID.csv"},
		{"Input.SourceColumn", cfg.Input.SourceColumn, "Source"},
		{"Input.TargetColumn", cfg.Input.TargetColumn, "Target"},
		{"Input.IDColumn", cfg.Input.IDColumn, "Id"},
		{"Input.LabelColumn", cfg.Input.LabelColumn, "Label"},
		{"Analysis.TopN", cfg.Analysis.TopN, 10},
		{"Analysis.Workers", cfg.Analysis.Workers, 0},
		{"Analysis.Eigenvector.MaxIterations", cfg.Analysis.Eigenvector.MaxIterations, 100},
		{"Analysis.Eigenvector.Tolerance", cfg.Analysis.Eigenvector.Tolerance, 1e-6},
		{"Analysis.Community.Method", cfg.Analysis.Community.Method, "louvain"},
		{"Analysis.Community.Enabled", cfg.Analysis.Community.Enabled, true},
		{"Analysis.Community.TopMembers", cfg.Analysis.Community.TopMembers, 10},
		{"Output.Format", cfg.Output.Format, "text"},
		{"Serve.Listen", cfg.Serve.Listen, ":8080"},
		{"Serve.ReadTimeout", cfg.Serve.ReadTimeout, 15 * time.Second},
		{"Sentiment.Window", cfg.Sentiment.Window, 7},
		{"Sentiment.Until", cfg.Sentiment.Until, "2023-04-01"},
		{"Sentiment.DateColumn", cfg.Sentiment.DateColumn, "Tweet_date&time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}

	if !cfg.Analysis.Has("bridging") || !cfg.Analysis.Has("betweenness") {
		t.Errorf("default metrics = %v", cfg.Analysis.Metrics)
	}
	if cfg.Analysis.Has("pagerank") {
		t.Error("pagerank should be opt-in")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "log_level",
			envKey: "SOCIALGRAPH_LOG_LEVEL",
			envVal: "debug",
			field:  func(c Config) any { return c.LogLevel },
			want:   "debug",
		},
		{
			name:   "input.edges",
			envKey: "SOCIALGRAPH_INPUT_EDGES",
			envVal: "s3://graphs/edges.csv",
			field:  func(c Config) any { return c.Input.Edges },
			want:   "s3://graphs/edges.csv",
		},
		{
			name:   "analysis.top_n",
			envKey: "SOCIALGRAPH_ANALYSIS_TOP_N",
			envVal: "25",
			field:  func(c Config) any { return c.Analysis.TopN },
			want:   25,
		},
		{
			name:   "analysis.community.resolution",
			envKey: "SOCIALGRAPH_ANALYSIS_COMMUNITY_RESOLUTION",
			envVal: "0.5",
			field:  func(c Config) any { return c.Analysis.Community.Resolution },
			want:   0.5,
		},
		{
			name:   "serve.write_timeout",
			envKey: "SOCIALGRAPH_SERVE_WRITE_TIMEOUT",
			envVal: "2m",
			field:  func(c Config) any { return c.Serve.WriteTimeout },
			want:   2 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envKey, tt.envVal)

			cfg := loadDefaults(t)
			if got := tt.field(cfg); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestLoad_MetricsFromEnv(t *testing.T) {
	t.Setenv("SOCIALGRAPH_ANALYSIS_METRICS", "degree,pagerank")

	cfg := loadDefaults(t)
	if len(cfg.Analysis.Metrics) != 2 || !cfg.Analysis.Has("pagerank") {
		t.Errorf("metrics = %v, want [degree pagerank]", cfg.Analysis.Metrics)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".socialgraph.yaml")
	content := `
log_level: warn
analysis:
  metrics: [degree, closeness]
  community:
    method: label_propagation
output:
  format: yaml
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := LoadFrom(v)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Analysis.Community.Method != "label_propagation" {
		t.Errorf("Community.Method = %q", cfg.Analysis.Community.Method)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("Output.Format = %q", cfg.Output.Format)
	}
	// untouched keys keep their defaults
	if cfg.Analysis.TopN != 10 {
		t.Errorf("TopN = %d, want default 10", cfg.Analysis.TopN)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"unknown metric", func(c *Config) { c.Analysis.Metrics = []string{"degree", "katz"} }, "analysis.metrics[1]"},
		{"no metrics", func(c *Config) { c.Analysis.Metrics = nil }, "analysis.metrics"},
		{"top_n zero", func(c *Config) { c.Analysis.TopN = 0 }, "analysis.top_n"},
		{"damping one", func(c *Config) { c.Analysis.PageRank.DampingFactor = 1 }, "analysis.pagerank.damping_factor"},
		{"bad community method", func(c *Config) { c.Analysis.Community.Method = "leiden" }, "analysis.community.method"},
		{"short jwt secret", func(c *Config) { c.Serve.JWTSecret = "too-short" }, "serve.jwt_secret"},
		{"bad until date", func(c *Config) { c.Sentiment.Until = "April 2023" }, "sentiment.until"},
		{"half s3 credentials", func(c *Config) { c.Input.S3.AccessKeyID = "AKIA" }, "input.s3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadDefaults(t)
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %s", tt.wantErr)
			}
			if !errors.Is(err, validation.ErrInvalidConfig) {
				t.Errorf("error should wrap ErrInvalidConfig: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %s", err, tt.wantErr)
			}
		})
	}
}
