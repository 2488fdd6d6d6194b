package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/fitvtt/attrition/pkg/core"
)

// MemoryConfig holds in-memory storage backend settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SqliteConfig holds SQLite storage backend settings. The database lives in
// memory and is dumped to DumpPath on an interval.
type SqliteConfig struct {
	DumpPath     string `json:"dumpPath" mapstructure:"dumpPath"`
	DumpInterval int    `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// StorageConfig selects and configures the flag persistence backend.
type StorageConfig struct {
	Type          string       `json:"type" mapstructure:"type"`
	FlushInterval int          `json:"flushInterval" mapstructure:"flushInterval"`
	Memory        MemoryConfig `json:"memory" mapstructure:"memory"`
	Sqlite        SqliteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// Load reads configuration from a JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName("attrition.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every setting's default value. Split out of Load so
// tests and the simulator can run without a config file on disk.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./attritionlogs")

	// master switch and per-resource enables
	viper.SetDefault("enabled", true)
	viper.SetDefault("hungerTracking", true)
	viper.SetDefault("thirstTracking", true)
	viper.SetDefault("restTracking", true)

	// days of grace before severity starts
	viper.SetDefault("baseTolerance", 1)
	viper.SetDefault("baseThirst", 1)
	viper.SetDefault("baseRest", 1)

	// tracked item names
	viper.SetDefault("rationName", "Rations")
	viper.SetDefault("waterName", "Waterskin")

	viper.SetDefault("terrain", "normal")

	// evaluation cadence in world seconds; rewinds beyond the threshold
	// re-initialize tracking instead of producing negative elapsed time
	viper.SetDefault("evalFrequency", 30)
	viper.SetDefault("rewindThreshold", 300)

	viper.SetDefault("skipMissingPlayers", true)
	viper.SetDefault("confirmChat", true)
	viper.SetDefault("hungerEffect", false)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.flushInterval", 10)
	viper.SetDefault("storage.memory.outputDir", "./attrition-data")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.dumpPath", "./attrition-data/attrition.db")
	viper.SetDefault("storage.sqlite.dumpInterval", 60)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "attrition")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "attrition-metrics")

	viper.SetDefault("webhook.enabled", false)
	viper.SetDefault("webhook.serverUrl", "http://localhost:5000")
	viper.SetDefault("webhook.apiKey", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// Enabled reports whether attrition tracking is globally enabled.
func Enabled() bool {
	return viper.GetBool("enabled")
}

// Storage returns the unmarshalled storage section.
func Storage() (StorageConfig, error) {
	var cfg StorageConfig
	if err := viper.UnmarshalKey("storage", &cfg); err != nil {
		return StorageConfig{}, fmt.Errorf("unmarshalling storage config: %w", err)
	}
	return cfg, nil
}

// TrackedItemName returns the configured consumable name for a resource.
// Rest has no tracked item; its "consumption" is taking a long rest.
func TrackedItemName(kind core.ResourceKind) string {
	switch kind {
	case core.Hunger:
		return viper.GetString("rationName")
	case core.Thirst:
		return viper.GetString("waterName")
	default:
		return ""
	}
}
