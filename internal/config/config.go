package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Analysis    AnalysisConfig `mapstructure:"analysis"`
	Export      ExportConfig   `mapstructure:"export"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AnalysisConfig holds the policy constants of the engines. These are
// business targets and heuristics, not data-derived values, so they are
// tunable without touching engine code.
type AnalysisConfig struct {
	QuintileBuckets      int                  `mapstructure:"quintile_buckets"`
	SignificanceLevel    float64              `mapstructure:"significance_level"`
	ConfidenceLevel      float64              `mapstructure:"confidence_level"`
	CLVRecencyWeight     float64              `mapstructure:"clv_recency_weight"`
	ChurnReductionTarget float64              `mapstructure:"churn_reduction_target"`
	TopCustomerFractions TopCustomerFractions `mapstructure:"top_customer_fractions"`
	TopProducts          int                  `mapstructure:"top_products"`
	RepeatOrderThreshold int                  `mapstructure:"repeat_order_threshold"`
}

type TopCustomerFractions struct {
	Narrow float64 `mapstructure:"narrow"`
	Broad  float64 `mapstructure:"broad"`
}

type ExportConfig struct {
	OutputPath string `mapstructure:"output_path"`
	RedisKey   string `mapstructure:"redis_key"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(cfg *Config) error {
	a := cfg.Analysis
	if a.QuintileBuckets < 2 || a.QuintileBuckets > 10 {
		return fmt.Errorf("quintile_buckets must be between 2 and 10, got %d", a.QuintileBuckets)
	}
	if a.SignificanceLevel <= 0 || a.SignificanceLevel >= 1 {
		return fmt.Errorf("significance_level must be in (0, 1), got %v", a.SignificanceLevel)
	}
	if a.ConfidenceLevel <= 0 || a.ConfidenceLevel >= 1 {
		return fmt.Errorf("confidence_level must be in (0, 1), got %v", a.ConfidenceLevel)
	}
	if a.ChurnReductionTarget < 0 || a.ChurnReductionTarget >= 1 {
		return fmt.Errorf("churn_reduction_target must be in [0, 1), got %v", a.ChurnReductionTarget)
	}
	if f := a.TopCustomerFractions; f.Narrow <= 0 || f.Broad <= 0 || f.Narrow > f.Broad || f.Broad > 1 {
		return fmt.Errorf("top_customer_fractions must satisfy 0 < narrow <= broad <= 1")
	}
	return nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "ecommerce")
	viper.SetDefault("database.sslmode", "disable")

	// Redis
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Analysis policy constants
	viper.SetDefault("analysis.quintile_buckets", 5)
	viper.SetDefault("analysis.significance_level", 0.05)
	viper.SetDefault("analysis.confidence_level", 0.95)
	viper.SetDefault("analysis.clv_recency_weight", 2.0)
	viper.SetDefault("analysis.churn_reduction_target", 0.14)
	viper.SetDefault("analysis.top_customer_fractions.narrow", 0.10)
	viper.SetDefault("analysis.top_customer_fractions.broad", 0.20)
	viper.SetDefault("analysis.top_products", 20)
	viper.SetDefault("analysis.repeat_order_threshold", 1)

	// Export
	viper.SetDefault("export.output_path", "outputs/comprehensive_metrics.json")
	viper.SetDefault("export.redis_key", "analytics:comprehensive_metrics")
}
