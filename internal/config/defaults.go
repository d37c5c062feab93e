package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			URL:            "http://localhost:8080",
			TimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/galeria",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
