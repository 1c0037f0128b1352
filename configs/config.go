// Package configs loads the process-level configuration described in
// spec.md §6: listen addresses per transport, which transports are enabled,
// the shared bearer token, TLS settings, default room config and log level.
// It generalizes the teacher's configs.LoadConfig singleton-over-JSON
// pattern onto github.com/spf13/viper so the same values can come from
// environment variables, a config file, or defaults, in that precedence.
package configs

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/viper"
)

// Config is the fully resolved process configuration.
type Config struct {
	LogLevel string `mapstructure:"logLevel"`

	Auth struct {
		BearerToken string `mapstructure:"bearerToken"`
	} `mapstructure:"auth"`

	Room struct {
		DefaultMaxPlayers uint32 `mapstructure:"defaultMaxPlayers"`
	} `mapstructure:"room"`

	TLS struct {
		Enabled  bool   `mapstructure:"enabled"`
		CertFile string `mapstructure:"certFile"`
		KeyFile  string `mapstructure:"keyFile"`
	} `mapstructure:"tls"`

	TCP struct {
		Enabled bool   `mapstructure:"enabled"`
		Address string `mapstructure:"address"`
	} `mapstructure:"tcp"`

	WebSocket struct {
		Enabled bool   `mapstructure:"enabled"`
		Address string `mapstructure:"address"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"websocket"`

	GRPC struct {
		Enabled bool   `mapstructure:"enabled"`
		Address string `mapstructure:"address"`
	} `mapstructure:"grpc"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Address string `mapstructure:"address"`
	} `mapstructure:"metrics"`
}

var (
	once   sync.Once
	config *Config
	loadErr error
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "INFO")
	v.SetDefault("auth.bearerToken", "")
	v.SetDefault("room.defaultMaxPlayers", 2)
	v.SetDefault("tls.enabled", false)
	v.SetDefault("tcp.enabled", true)
	v.SetDefault("tcp.address", "0.0.0.0:9000")
	v.SetDefault("websocket.enabled", true)
	v.SetDefault("websocket.address", "0.0.0.0:9001")
	v.SetDefault("websocket.path", "/ws")
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.address", "0.0.0.0:9002")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.address", "0.0.0.0:9100")
}

// LoadConfig reads configuration from filePath (if it exists), then from
// ROOMREALM_-prefixed environment variables, falling back to the defaults
// above. It is designed to be called once; subsequent calls return the
// already-loaded config.
func LoadConfig(filePath string) (*Config, error) {
	once.Do(func() {
		v := viper.New()
		setDefaults(v)

		v.SetEnvPrefix("ROOMREALM")
		v.AutomaticEnv()

		if filePath != "" {
			v.SetConfigFile(filePath)
			if err := v.ReadInConfig(); err != nil {
				if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
					loadErr = fmt.Errorf("reading config file %s: %w", filePath, err)
					return
				}
			}
		}

		cfg := &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			loadErr = fmt.Errorf("unmarshalling config: %w", err)
			return
		}
		config = cfg
	})
	return config, loadErr
}

// GetConfig returns the loaded configuration. It panics if LoadConfig has
// not yet succeeded; callers are expected to check LoadConfig's error at
// startup instead of relying on this.
func GetConfig() *Config {
	if config == nil {
		panic("configs: GetConfig called before a successful LoadConfig")
	}
	return config
}
