// Package config loads socialgraph settings from .socialgraph.yaml,
// SOCIALGRAPH_* environment variables and command-line flags via viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dd0wney/cluso-socialgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-socialgraph/pkg/validation"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "SOCIALGRAPH"

// MinJWTSecretLength is the shortest accepted HS256 secret
const MinJWTSecretLength = 32

// S3Config configures the object-store client used for s3:// inputs.
// Static credentials are optional; without them the default AWS chain applies.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// InputConfig locates the edge and node tables and names their columns.
type InputConfig struct {
	Edges        string   `mapstructure:"edges" validate:"required"`
	Nodes        string   `mapstructure:"nodes"`
	SourceColumn string   `mapstructure:"source_column" validate:"required"`
	TargetColumn string   `mapstructure:"target_column" validate:"required"`
	IDColumn     string   `mapstructure:"id_column" validate:"required"`
	LabelColumn  string   `mapstructure:"label_column"`
	S3           S3Config `mapstructure:"s3"`
}

type EigenvectorConfig struct {
	MaxIterations int     `mapstructure:"max_iterations" validate:"gte=1"`
	Tolerance     float64 `mapstructure:"tolerance" validate:"gt=0"`
}

type PageRankConfig struct {
	DampingFactor float64 `mapstructure:"damping_factor" validate:"gt=0,lt=1"`
	MaxIterations int     `mapstructure:"max_iterations" validate:"gte=1"`
	Tolerance     float64 `mapstructure:"tolerance" validate:"gt=0"`
}

type CommunityConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Method        string  `mapstructure:"method" validate:"oneof=louvain label_propagation components"`
	Resolution    float64 `mapstructure:"resolution" validate:"gt=0"`
	Seed          uint64  `mapstructure:"seed"`
	MaxIterations int     `mapstructure:"max_iterations" validate:"gte=1"`
	TopMembers    int     `mapstructure:"top_members" validate:"gte=1"`
}

// AnalysisConfig selects metrics and tunes the algorithms.
type AnalysisConfig struct {
	Metrics                  []string          `mapstructure:"metrics" validate:"min=1"`
	TopN                     int               `mapstructure:"top_n" validate:"gte=1,lte=1000"`
	Workers                  int               `mapstructure:"workers" validate:"gte=0"`
	ExcludeUndefinedBridging bool              `mapstructure:"exclude_undefined_bridging"`
	Eigenvector              EigenvectorConfig `mapstructure:"eigenvector"`
	PageRank                 PageRankConfig    `mapstructure:"pagerank"`
	Community                CommunityConfig   `mapstructure:"community"`
}

type OutputConfig struct {
	Format        string `mapstructure:"format" validate:"oneof=text json yaml"`
	Path          string `mapstructure:"path"`
	Snapshot      string `mapstructure:"snapshot"`
	IncludeScores bool   `mapstructure:"include_scores"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns" validate:"gte=1"`
}

type ServeConfig struct {
	Listen       string        `mapstructure:"listen" validate:"required"`
	Snapshot     string        `mapstructure:"snapshot"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	RateLimit    float64       `mapstructure:"rate_limit" validate:"gte=0"` // requests per second per client, 0 disables
	RateBurst    int           `mapstructure:"rate_burst" validate:"gte=0"`
}

// SentimentConfig configures the sentiment-over-time series.
type SentimentConfig struct {
	Input       string `mapstructure:"input" validate:"required"`
	DateColumn  string `mapstructure:"date_column" validate:"required"`
	ValueColumn string `mapstructure:"value_column" validate:"required"`
	Window      int    `mapstructure:"window" validate:"gte=1"`
	Until       string `mapstructure:"until"`
	Format      string `mapstructure:"format" validate:"oneof=csv json yaml"`
	Output      string `mapstructure:"output"`
}

// Config holds all runtime configuration.
// Values are populated from .socialgraph.yaml, SOCIALGRAPH_* env vars, and CLI flags.
type Config struct {
	LogLevel  string          `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Input     InputConfig     `mapstructure:"input"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Output    OutputConfig    `mapstructure:"output"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Serve     ServeConfig     `mapstructure:"serve"`
	Sentiment SentimentConfig `mapstructure:"sentiment"`
}

// SetDefaults registers built-in defaults on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("input.edges", "User_Edge.csv")
	v.SetDefault("input.nodes", "User_ID.csv")
	v.SetDefault("input.source_column", "Source")
	v.SetDefault("input.target_column", "Target")
	v.SetDefault("input.id_column", "Id")
	v.SetDefault("input.label_column", "Label")
	v.SetDefault("input.s3.region", "us-east-1")
	v.SetDefault("input.s3.endpoint", "")
	v.SetDefault("input.s3.access_key_id", "")
	v.SetDefault("input.s3.secret_access_key", "")
	v.SetDefault("input.s3.use_path_style", false)

	eigen := algorithms.DefaultEigenvectorOptions()
	pagerank := algorithms.DefaultPageRankOptions()
	community := algorithms.DefaultCommunityOptions()
	v.SetDefault("analysis.metrics", []string{"degree", "betweenness", "eigenvector", "bridging"})
	v.SetDefault("analysis.top_n", 10)
	v.SetDefault("analysis.workers", 0)
	v.SetDefault("analysis.exclude_undefined_bridging", false)
	v.SetDefault("analysis.eigenvector.max_iterations", eigen.MaxIterations)
	v.SetDefault("analysis.eigenvector.tolerance", eigen.Tolerance)
	v.SetDefault("analysis.pagerank.damping_factor", pagerank.DampingFactor)
	v.SetDefault("analysis.pagerank.max_iterations", pagerank.MaxIterations)
	v.SetDefault("analysis.pagerank.tolerance", pagerank.Tolerance)
	v.SetDefault("analysis.community.enabled", true)
	v.SetDefault("analysis.community.method", community.Method)
	v.SetDefault("analysis.community.resolution", community.Resolution)
	v.SetDefault("analysis.community.seed", community.Seed)
	v.SetDefault("analysis.community.max_iterations", community.MaxIterations)
	v.SetDefault("analysis.community.top_members", 10)

	v.SetDefault("output.format", "text")
	v.SetDefault("output.path", "")
	v.SetDefault("output.snapshot", "")
	v.SetDefault("output.include_scores", false)

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 10)

	v.SetDefault("serve.listen", ":8080")
	v.SetDefault("serve.snapshot", "")
	v.SetDefault("serve.jwt_secret", "")
	v.SetDefault("serve.read_timeout", 15*time.Second)
	v.SetDefault("serve.write_timeout", 60*time.Second)
	v.SetDefault("serve.cors_origins", []string{})
	v.SetDefault("serve.rate_limit", 0.0)
	v.SetDefault("serve.rate_burst", 100)

	v.SetDefault("sentiment.input", "Date-Time-TweetSentiment.csv")
	v.SetDefault("sentiment.date_column", "Tweet_date&time")
	v.SetDefault("sentiment.value_column", "Tweet_Sentiment_Value")
	v.SetDefault("sentiment.window", 7)
	v.SetDefault("sentiment.until", "2023-04-01")
	v.SetDefault("sentiment.format", "csv")
	v.SetDefault("sentiment.output", "")
}

// BindEnv makes every key overridable as SOCIALGRAPH_<SECTION>_<KEY>
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the global viper instance, applying built-in
// defaults for any values not set by config file, environment, or flags.
func Load() (Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load against an explicit viper instance.
func LoadFrom(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	BindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks field shapes with struct tags, then cross-field rules.
func (c Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", validation.ErrInvalidConfig, err)
	}

	cv := validation.NewConfigValidator("config")
	cv.EachOneOf("analysis.metrics", c.Analysis.Metrics, validation.MetricNames)
	cv.When(c.Sentiment.Until != "", func(v *validation.ConfigValidator) {
		v.Date("sentiment.until", c.Sentiment.Until)
	})
	cv.When(c.Serve.JWTSecret != "", func(v *validation.ConfigValidator) {
		v.MinLength("serve.jwt_secret", c.Serve.JWTSecret, MinJWTSecretLength)
	})
	cv.When(c.Serve.ReadTimeout != 0, func(v *validation.ConfigValidator) {
		v.MinDuration("serve.read_timeout", c.Serve.ReadTimeout, time.Second)
	})
	cv.When(c.Serve.RateLimit > 0, func(v *validation.ConfigValidator) {
		v.Positive("serve.rate_burst", c.Serve.RateBurst)
	})
	cv.Custom("input.s3", func() error {
		if (c.Input.S3.AccessKeyID == "") != (c.Input.S3.SecretAccessKey == "") {
			return errors.New("access_key_id and secret_access_key must be set together")
		}
		return nil
	})
	return cv.Validate()
}

// Has reports whether metric is among the configured analysis metrics.
func (a AnalysisConfig) Has(metric string) bool {
	for _, m := range a.Metrics {
		if m == metric {
			return true
		}
	}
	return false
}
