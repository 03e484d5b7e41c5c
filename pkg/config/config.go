// Package config loads application configuration from file, environment,
// and flags via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Config holds application-wide configuration.
type Config struct {
	ListenAddr string        `mapstructure:"listenAddr"`
	DataAPI    DataAPIConfig `mapstructure:"dataAPI"`
	Broker     BrokerConfig  `mapstructure:"broker"`
	ACL        ACLConfig     `mapstructure:"acl"`
	Poll       PollConfig    `mapstructure:"poll"`
	Metrics    MetricsConfig `mapstructure:"metrics"`
}

// DataAPIConfig points at the PostgREST-compatible read API.
type DataAPIConfig struct {
	URL               string        `mapstructure:"url"`
	Token             string        `mapstructure:"token"`
	Timeout           time.Duration `mapstructure:"timeout"`
	ObservationsTable string        `mapstructure:"observationsTable"`
	EventsTable       string        `mapstructure:"eventsTable"`
}

// BrokerConfig configures the optional live broker probe.
type BrokerConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	ClientID string `mapstructure:"clientID"`
}

// ACLConfig configures the optional ACL management store.
type ACLConfig struct {
	ConnString string `mapstructure:"connString"`
}

// PollConfig drives the background poller.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Range    string        `mapstructure:"range"`
	Series   []string      `mapstructure:"series"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		DataAPI: DataAPIConfig{
			Timeout: 5 * time.Second,
		},
		Poll: PollConfig{
			Interval: time.Minute,
			Range:    "24h",
			Series:   []string{"received", "sent"},
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
		},
	}
}

// Load reads config from file or environment. An absent config file is not
// an error; defaults and MQTTSCOPE_* environment variables still apply.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("mqttscope")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("MQTTSCOPE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}
