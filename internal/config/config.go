package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the server configuration, from geochat.yaml and/or
// GEOCHAT_* environment variables.
type Config struct {
	Listen        string `mapstructure:"listen"`
	DBPath        string `mapstructure:"db_path"`
	UploadDir     string `mapstructure:"upload_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	GMPassword    string `mapstructure:"gm_password"`
}

// Load reads configuration with sane local-dev defaults. A missing
// config file is fine; a malformed one is not.
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("listen", "127.0.0.1:3000")
	v.SetDefault("db_path", "data/geochat.db")
	v.SetDefault("upload_dir", "data/uploads")
	v.SetDefault("public_base_url", "http://127.0.0.1:3000")
	v.SetDefault("gm_password", "")

	v.SetConfigName("geochat")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("geochat")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.WithMessage(err, "read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.WithMessage(err, "unmarshal config")
	}
	return &cfg, nil
}
