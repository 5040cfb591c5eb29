package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.False(t, cfg.Redis.Enabled)

	assert.Equal(t, 5, cfg.Analysis.QuintileBuckets)
	assert.Equal(t, 0.05, cfg.Analysis.SignificanceLevel)
	assert.Equal(t, 0.95, cfg.Analysis.ConfidenceLevel)
	assert.Equal(t, 2.0, cfg.Analysis.CLVRecencyWeight)
	assert.Equal(t, 0.14, cfg.Analysis.ChurnReductionTarget)
	assert.Equal(t, 0.10, cfg.Analysis.TopCustomerFractions.Narrow)
	assert.Equal(t, 0.20, cfg.Analysis.TopCustomerFractions.Broad)
	assert.Equal(t, 20, cfg.Analysis.TopProducts)
	assert.Equal(t, 1, cfg.Analysis.RepeatOrderThreshold)

	assert.Equal(t, "outputs/comprehensive_metrics.json", cfg.Export.OutputPath)
	assert.Equal(t, "analytics:comprehensive_metrics", cfg.Export.RedisKey)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("DATABASE_HOST", "db.internal")
	t.Setenv("ANALYSIS_SIGNIFICANCE_LEVEL", "0.01")
	t.Setenv("ENVIRONMENT", "Production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 0.01, cfg.Analysis.SignificanceLevel)
	// Environment is normalized to lower case.
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"quintile buckets too small", "ANALYSIS_QUINTILE_BUCKETS", "1"},
		{"quintile buckets too large", "ANALYSIS_QUINTILE_BUCKETS", "50"},
		{"significance level out of range", "ANALYSIS_SIGNIFICANCE_LEVEL", "1.5"},
		{"confidence level out of range", "ANALYSIS_CONFIDENCE_LEVEL", "0"},
		{"churn reduction target too large", "ANALYSIS_CHURN_REDUCTION_TARGET", "1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Setenv(tt.key, tt.value)

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoad_FractionOrderingValidated(t *testing.T) {
	viper.Reset()
	t.Setenv("ANALYSIS_TOP_CUSTOMER_FRACTIONS_NARROW", "0.5")
	t.Setenv("ANALYSIS_TOP_CUSTOMER_FRACTIONS_BROAD", "0.2")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "top_customer_fractions")
}
