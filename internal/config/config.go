// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config assembles the immutable types.Config snapshot consumed at
// startup, layering a config file and PAPER_MCP_-prefixed environment
// variables, in that order, on top of spec §6.4's defaults. It follows the same viper-based layering a cobra
// CLI typically wires up for its own YAML config, generalized to this
// domain's settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshintel/paper-mcp/pkg/types"
)

// EnvPrefix is the environment-variable prefix viper binds automatically,
// e.g. PAPER_MCP_DOWNLOAD_MAX_FILE_SIZE_MB.
const EnvPrefix = "PAPER_MCP"

// BindFlags registers the --config persistent flag on root. It binds no
// other flag; subcommands read the flag's value and pass it to Load.
func BindFlags(root *cobra.Command) {
	root.PersistentFlags().String("config", "", "config file (default: ./paper-mcp.yaml or ~/.config/paper-mcp/paper-mcp.yaml)")
}

// Load builds a types.Config from (in increasing precedence): spec
// defaults, a config file, and PAPER_MCP_ environment variables. cfgFile may be
// empty, in which case the default search path is used; a missing file is
// not an error, since every setting already has a usable default.
func Load(cfgFile string) (types.Config, error) {
	v := viper.New()
	setDefaults(v, types.Default())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("paper-mcp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "paper-mcp"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return types.Config{}, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	cfg := types.Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("config: decoding: %w", err)
	}

	perProvider := map[string]float64{}
	for name, raw := range v.GetStringMap("rate_limit.per_provider") {
		if f, ok := toFloat(raw); ok {
			perProvider[name] = f
		}
	}
	cfg.RateLimit.PerProvider = perProvider

	cfg.AuthKeys = v.GetStringMapString("auth_keys")

	return cfg, nil
}

// setDefaults seeds viper with every field of d so an absent config file
// and absent environment variables still produce spec §6.4's defaults.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("download.directory", d.Download.Directory)
	v.SetDefault("download.max_file_size_mb", d.Download.MaxFileSizeMB)
	v.SetDefault("download.max_concurrent", d.Download.MaxConcurrent)
	v.SetDefault("download.verify_integrity", d.Download.VerifyIntegrity)

	v.SetDefault("request.max_concurrent", d.Request.MaxConcurrent)
	v.SetDefault("request.timeout_secs", d.Request.TimeoutSecs)
	v.SetDefault("request.overall_timeout_secs", d.Request.OverallTimeoutSecs)

	v.SetDefault("rate_limit.default_per_sec", d.RateLimit.DefaultPerSec)

	v.SetDefault("circuit_breaker.failure_threshold", d.CircuitBreaker.FailureThreshold)
	v.SetDefault("circuit_breaker.recovery_secs", d.CircuitBreaker.RecoverySecs)
	v.SetDefault("circuit_breaker.half_open_probes", d.CircuitBreaker.HalfOpenProbes)

	v.SetDefault("retry.max_attempts", d.Retry.MaxAttempts)
	v.SetDefault("retry.base_delay_ms", d.Retry.BaseDelayMs)
	v.SetDefault("retry.max_delay_ms", d.Retry.MaxDelayMs)

	v.SetDefault("identification.contact_email", d.Identification.ContactEmail)
	v.SetDefault("identification.product", d.Identification.Product)
	v.SetDefault("identification.version", d.Identification.Version)

	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.snapshot_path", d.Cache.SnapshotPath)
	v.SetDefault("cache.search_ttl_secs", d.Cache.SearchTTLSecs)
	v.SetDefault("cache.metadata_ttl_secs", d.Cache.MetadataTTLSecs)
	v.SetDefault("cache.negative_ttl_secs", d.Cache.NegativeTTLSecs)
}

// toFloat converts a value decoded from YAML/env into a float64, accepting
// the handful of numeric shapes viper's loosely-typed map decoding
// produces.
func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}
