// Package config holds server configuration and the YAML loader for
// stub collections.
package config

// Config is the top-level server configuration, read from stubd.yaml
// with STUBD_* environment overrides.
type Config struct {
	Admin AdminConfig `yaml:"admin" mapstructure:"admin"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
	Store StoreConfig `yaml:"store" mapstructure:"store"`
	Seed  SeedConfig  `yaml:"seed" mapstructure:"seed"`
}

// AdminConfig configures the administrative API.
type AdminConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig selects and configures the stub store.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `yaml:"driver" mapstructure:"driver"`

	// Path is the SQLite database path (sqlite driver only).
	Path string `yaml:"path" mapstructure:"path"`

	// Breaker wraps the store in a circuit breaker.
	Breaker bool `yaml:"breaker" mapstructure:"breaker"`
}

// SeedConfig lists stub collection files loaded at startup.
type SeedConfig struct {
	Files []string `yaml:"files" mapstructure:"files"`
}

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Admin: AdminConfig{Port: 4290},
		Log:   LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{Driver: DriverMemory, Path: "stubd.db"},
	}
}
