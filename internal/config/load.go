package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the given file (or the default search path
// when path is empty), applies environment overrides and defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/eventcrawl")
	}

	v.SetEnvPrefix("EVENTCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus environment cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Crawl.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values with viper so environment-only
// deployments work without a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "eventcrawl")
	v.SetDefault("app.environment", DefaultEnvironment)
	v.SetDefault("app.debug", false)

	v.SetDefault("database.host", DefaultDBHost)
	v.SetDefault("database.port", DefaultDBPort)
	v.SetDefault("database.user", DefaultDBUser)
	v.SetDefault("database.dbname", DefaultDBName)
	v.SetDefault("database.sslmode", DefaultDBSSLMode)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.development", false)

	v.SetDefault("crawl.source_base_url", "https://social.example")
	v.SetDefault("crawl.cities", []string{"Karlsruhe"})
	v.SetDefault("crawl.search_terms", []string{"salsa", "bachata", "kizomba"})
	v.SetDefault("crawl.category_filters", []string{""})
	v.SetDefault("crawl.relevance_keywords", []string{"salsa", "bachata", "kizomba", "son", "mambo"})
}
