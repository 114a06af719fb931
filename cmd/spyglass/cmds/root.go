package cmds

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/spyglasshq/spyglass/pkg/api"
	"github.com/spyglasshq/spyglass/pkg/auth"
	"github.com/spyglasshq/spyglass/pkg/config"
)

var rootFlags struct {
	configFile string
	profile    string
	logLevel   string
	baseURL    string
	workspace  string
	token      string
	tokenFile  string
}

var rootCmd = &cobra.Command{
	Use:   "spyglass",
	Short: "spyglass is the terminal client for the Spyglass observability assistant",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// reinitialize the logger once --log-level is parsed
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		return initLogger(cfg.LogLevel)
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configFile, "config", "", "config file (default ~/.spyglass/config.yaml)")
	pf.StringVar(&rootFlags.profile, "profile", "", "profile from ~/.spyglass/profiles.yaml")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "trace|debug|info|warn|error")
	pf.StringVar(&rootFlags.baseURL, "base-url", "", "backend API base URL")
	pf.StringVar(&rootFlags.workspace, "workspace", "", "workspace id")
	pf.StringVar(&rootFlags.token, "token", "", "bearer token (prefer --token-file or SPYGLASS_TOKEN)")
	pf.StringVar(&rootFlags.tokenFile, "token-file", "", "file holding the bearer token")
}

func initLogger(level string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return nil
}

// resolveConfig layers config file, environment, profile and flags.
func resolveConfig() (*config.Config, error) {
	cfg, err := config.Load(rootFlags.configFile)
	if err != nil {
		return nil, err
	}

	profile := rootFlags.profile
	if profile == "" {
		profile = cfg.Profile
	}
	if profile != "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return nil, err
		}
		profiles, err := config.LoadProfiles(filepath.Join(dir, "profiles.yaml"))
		if err != nil {
			return nil, err
		}
		if err := config.ApplyProfile(cfg, profiles, profile); err != nil {
			return nil, err
		}
	}

	// flags win over everything
	if rootFlags.baseURL != "" {
		cfg.BaseURL = rootFlags.baseURL
	}
	if rootFlags.workspace != "" {
		cfg.WorkspaceID = rootFlags.workspace
	}
	if rootFlags.token != "" {
		cfg.Token = rootFlags.token
	}
	if rootFlags.tokenFile != "" {
		cfg.TokenFile = rootFlags.tokenFile
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	return cfg, nil
}

func newTokenProvider(cfg *config.Config) (auth.TokenProvider, error) {
	switch {
	case cfg.TokenFile != "":
		return auth.NewFileProvider(cfg.TokenFile)
	case cfg.Token != "":
		return auth.NewStaticProvider(cfg.Token)
	default:
		return nil, errors.New("no token configured: set --token, --token-file or SPYGLASS_TOKEN")
	}
}

func newClient(cfg *config.Config) (*api.Client, error) {
	tokens, err := newTokenProvider(cfg)
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.BaseURL, tokens)
}

func requireWorkspace(cfg *config.Config) error {
	if strings.TrimSpace(cfg.WorkspaceID) == "" {
		return errors.New("no workspace configured: set --workspace or SPYGLASS_WORKSPACE_ID")
	}
	return nil
}
