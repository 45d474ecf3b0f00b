package config

// Config represents the complete configuration structure
type Config struct {
	Gateway GatewayConfig `mapstructure:"gateway"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// GatewayConfig holds PesaFlow API connection details
type GatewayConfig struct {
	Environment string `mapstructure:"environment"`
	APIKey      string `mapstructure:"api_key"`
	SecretKey   string `mapstructure:"secret_key"`
	BaseURL     string `mapstructure:"base_url"`
	TimeoutMs   int    `mapstructure:"timeout_ms"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
