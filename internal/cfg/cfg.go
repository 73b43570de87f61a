package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"house-insights/internal/common"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	DatasetPath     string
	DatasetDSN      string
	DatasetTable    string
	ModelKind       string
	ModelPath       string
	PythonPath      string
	ModelURL        string
	ModelTimeout    time.Duration
	DashboardPort   int
	MetricsPort     int
	MLServerPort    int
	DataPath        string
	CacheSize       int
	CacheTTL        time.Duration
	TopN            int
	DefaultMaxPrice float64
	DefaultMinQual  int
	LogLevel        string
	LogFormat       string
}

type ConfigFile struct {
	Dataset struct {
		Path  string `yaml:"path"`
		DSN   string `yaml:"dsn"`
		Table string `yaml:"table"`
	} `yaml:"dataset"`

	Model struct {
		Kind       string `yaml:"kind"`
		Path       string `yaml:"path"`
		PythonPath string `yaml:"pythonPath"`
		URL        string `yaml:"url"`
		Timeout    string `yaml:"timeout"`
		ServerPort int    `yaml:"serverPort"`
	} `yaml:"model"`

	Dashboard struct {
		Port            int     `yaml:"port"`
		TopN            int     `yaml:"topN"`
		DefaultMaxPrice float64 `yaml:"defaultMaxPrice"`
		DefaultMinQual  int     `yaml:"defaultMinQuality"`
	} `yaml:"dashboard"`

	Cache struct {
		Size int    `yaml:"size"`
		TTL  string `yaml:"ttl"`
	} `yaml:"cache"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		MetricsPort int    `yaml:"metricsPort"`
		LogLevel    string `yaml:"logLevel"`
		LogFormat   string `yaml:"logFormat"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	modelTimeout, err := time.ParseDuration(config.Model.Timeout)
	if err != nil {
		modelTimeout = 10 * time.Second
	}
	cacheTTL, err := time.ParseDuration(config.Cache.TTL)
	if err != nil {
		cacheTTL = 5 * time.Minute
	}

	settings := Settings{
		DatasetPath:     getEnvOrDefault(common.EnvDatasetPath, orString(config.Dataset.Path, common.DefaultDatasetPath)),
		DatasetDSN:      getEnvOrDefault(common.EnvDatasetDSN, config.Dataset.DSN),
		DatasetTable:    getEnvOrDefault(common.EnvDatasetTable, orString(config.Dataset.Table, common.DefaultDatasetTable)),
		ModelKind:       strings.ToLower(getEnvOrDefault(common.EnvModelKind, orString(config.Model.Kind, common.DefaultModelKind))),
		ModelPath:       getEnvOrDefault(common.EnvModelPath, orString(config.Model.Path, common.DefaultModelPath)),
		PythonPath:      getEnvOrDefault(common.EnvPythonPath, config.Model.PythonPath),
		ModelURL:        getEnvOrDefault(common.EnvModelURL, config.Model.URL),
		ModelTimeout:    getDurationOrDefault(common.EnvModelTimeout, modelTimeout),
		DashboardPort:   getIntFromEnvOrConfig(common.EnvDashboardPort, config.Dashboard.Port, common.DefaultDashboardPort),
		MetricsPort:     getIntFromEnvOrConfig(common.EnvMetricsPort, config.System.MetricsPort, common.DefaultMetricsPort),
		MLServerPort:    getIntFromEnvOrConfig(common.EnvMLServerPort, config.Model.ServerPort, 0),
		DataPath:        getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		CacheSize:       getIntFromEnvOrConfig(common.EnvCacheSize, config.Cache.Size, common.DefaultCacheSize),
		CacheTTL:        getDurationOrDefault(common.EnvCacheTTL, cacheTTL),
		TopN:            getIntFromEnvOrConfig(common.EnvTopN, config.Dashboard.TopN, common.DefaultTopN),
		DefaultMaxPrice: getFloatFromEnvOrConfig(common.EnvDefaultMaxPrice, config.Dashboard.DefaultMaxPrice, common.DefaultMaxPrice),
		DefaultMinQual:  getIntFromEnvOrConfig(common.EnvDefaultMinQual, config.Dashboard.DefaultMinQual, common.DefaultMinQuality),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, orString(config.System.LogLevel, common.DefaultLogLevel)),
		LogFormat:       getEnvOrDefault(common.EnvLogFormat, config.System.LogFormat),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DatasetPath:     getEnvOrDefault(common.EnvDatasetPath, common.DefaultDatasetPath),
		DatasetDSN:      os.Getenv(common.EnvDatasetDSN), // optional
		DatasetTable:    getEnvOrDefault(common.EnvDatasetTable, common.DefaultDatasetTable),
		ModelKind:       strings.ToLower(getEnvOrDefault(common.EnvModelKind, common.DefaultModelKind)),
		ModelPath:       getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		PythonPath:      os.Getenv(common.EnvPythonPath),
		ModelURL:        os.Getenv(common.EnvModelURL),
		ModelTimeout:    getDurationOrDefault(common.EnvModelTimeout, 10*time.Second),
		DashboardPort:   getIntOrDefault(common.EnvDashboardPort, common.DefaultDashboardPort),
		MetricsPort:     getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		MLServerPort:    getIntOrDefault(common.EnvMLServerPort, 0),
		DataPath:        os.Getenv(common.EnvDataPath), // optional
		CacheSize:       getIntOrDefault(common.EnvCacheSize, common.DefaultCacheSize),
		CacheTTL:        getDurationOrDefault(common.EnvCacheTTL, 5*time.Minute),
		TopN:            getIntOrDefault(common.EnvTopN, common.DefaultTopN),
		DefaultMaxPrice: getFloatOrDefault(common.EnvDefaultMaxPrice, common.DefaultMaxPrice),
		DefaultMinQual:  getIntOrDefault(common.EnvDefaultMinQual, common.DefaultMinQuality),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:       os.Getenv(common.EnvLogFormat),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// UsesPostgres reports whether the dataset should be read from a database
// instead of the CSV file.
func (s *Settings) UsesPostgres() bool {
	return s.DatasetDSN != ""
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	// Dataset source
	if settings.DatasetDSN == "" && settings.DatasetPath == "" {
		return fmt.Errorf("dataset path or DSN must be specified")
	}
	if settings.DatasetDSN != "" && settings.DatasetTable == "" {
		return fmt.Errorf("dataset table is required when a DSN is set")
	}

	// Model artifact
	switch settings.ModelKind {
	case common.ModelKindLinear, common.ModelKindPython:
		if settings.ModelPath == "" {
			return fmt.Errorf("model path is required for %s models", settings.ModelKind)
		}
	case common.ModelKindRemote:
		if settings.ModelURL == "" {
			return fmt.Errorf("model URL is required for remote models")
		}
	default:
		return fmt.Errorf("unknown model kind %q", settings.ModelKind)
	}
	if settings.ModelTimeout < 100*time.Millisecond || settings.ModelTimeout > 2*time.Minute {
		return fmt.Errorf("model timeout must be between 100ms and 2m, got %v", settings.ModelTimeout)
	}

	// Ports
	if settings.DashboardPort < common.MinPort || settings.DashboardPort > common.MaxPort {
		return fmt.Errorf("dashboard port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.DashboardPort)
	}
	if settings.MetricsPort < common.MinPort || settings.MetricsPort > common.MaxPort {
		return fmt.Errorf("metrics port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.MetricsPort)
	}
	if settings.MetricsPort == settings.DashboardPort {
		return fmt.Errorf("metrics port and dashboard port must differ, both are %d", settings.MetricsPort)
	}
	if settings.MLServerPort != 0 && (settings.MLServerPort < common.MinPort || settings.MLServerPort > common.MaxPort) {
		return fmt.Errorf("model server port must be 0 or between %d and %d, got %d", common.MinPort, common.MaxPort, settings.MLServerPort)
	}

	// Cache
	if settings.CacheSize < 0 || settings.CacheSize > common.MaxCacheSize {
		return fmt.Errorf("cache size must be between 0 and %d, got %d", common.MaxCacheSize, settings.CacheSize)
	}
	if settings.CacheSize > 0 && settings.CacheTTL < time.Second {
		return fmt.Errorf("cache TTL must be at least 1s, got %v", settings.CacheTTL)
	}

	// Dashboard defaults
	if settings.TopN <= 0 || settings.TopN > common.MaxTopN {
		return fmt.Errorf("top N must be between 1 and %d, got %d", common.MaxTopN, settings.TopN)
	}
	if settings.DefaultMaxPrice <= 0 {
		return fmt.Errorf("default max price must be positive, got %f", settings.DefaultMaxPrice)
	}
	if settings.DefaultMinQual < common.MinQuality || settings.DefaultMinQual > common.MaxQuality {
		return fmt.Errorf("default min quality must be between %d and %d, got %d", common.MinQuality, common.MaxQuality, settings.DefaultMinQual)
	}

	switch strings.ToLower(settings.LogLevel) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", settings.LogLevel)
	}

	return nil
}
