package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is everything the CLI needs to talk to a Spyglass backend.
// Values resolve, lowest to highest precedence: defaults, the config
// file, SPYGLASS_* environment variables, flags bound by the CLI, and
// finally the selected profile's overrides.
type Config struct {
	BaseURL     string `mapstructure:"base_url"`
	WorkspaceID string `mapstructure:"workspace_id"`
	Token       string `mapstructure:"token"`
	TokenFile   string `mapstructure:"token_file"`
	LogLevel    string `mapstructure:"log_level"`
	Profile     string `mapstructure:"profile"`
}

const (
	defaultBaseURL  = "https://api.spyglass.dev/api/v1"
	defaultLogLevel = "info"
)

// DefaultDir is where config, profiles and local state live.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "config: resolve home directory")
	}
	return filepath.Join(home, ".spyglass"), nil
}

// Load reads the config file at path (or ~/.spyglass/config.yaml when
// empty) and applies environment overrides. A missing file is fine; env
// and defaults still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("base_url", defaultBaseURL)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetEnvPrefix("SPYGLASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{"base_url", "workspace_id", "token", "token_file", "log_level", "profile"} {
		if err := v.BindEnv(key); err != nil {
			return nil, errors.Wrap(err, "config: bind env")
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrap(err, "config: read config file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "config: unmarshal")
	}
	return cfg, nil
}

// localState is the slice of UI state that survives restarts.
type localState struct {
	SidebarCollapsed bool `yaml:"sidebar_collapsed"`
}

// LoadSidebarCollapsed reads the persisted sidebar preference; a missing
// state file means not collapsed.
func LoadSidebarCollapsed(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, "state.yaml"))
	if err != nil {
		return false
	}
	var st localState
	if err := yaml.Unmarshal(data, &st); err != nil {
		return false
	}
	return st.SidebarCollapsed
}

// SaveSidebarCollapsed persists the sidebar preference.
func SaveSidebarCollapsed(dir string, collapsed bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "config: create state dir")
	}
	data, err := yaml.Marshal(localState{SidebarCollapsed: collapsed})
	if err != nil {
		return errors.Wrap(err, "config: encode state")
	}
	return errors.Wrap(os.WriteFile(filepath.Join(dir, "state.yaml"), data, 0o644), "config: write state")
}
