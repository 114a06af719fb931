package cmds

import (
	"context"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/spyglasshq/spyglass/pkg/appstate"
	"github.com/spyglasshq/spyglass/pkg/chat"
	"github.com/spyglasshq/spyglass/pkg/config"
	"github.com/spyglasshq/spyglass/pkg/history"
	"github.com/spyglasshq/spyglass/pkg/ui"
)

var chatFlags struct {
	sessionID string
	noArchive bool
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat assistant",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		if err := requireWorkspace(cfg); err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		dir, err := config.DefaultDir()
		if err != nil {
			return err
		}
		store := appstate.NewStore(
			appstate.WithInitialState(appstate.State{
				WorkspaceID:      cfg.WorkspaceID,
				SidebarCollapsed: config.LoadSidebarCollapsed(dir),
			}),
			appstate.WithPersister(func(st appstate.State) error {
				return config.SaveSidebarCollapsed(dir, st.SidebarCollapsed)
			}),
		)

		bridge := ui.NewBridge()
		defer bridge.Close()

		opts := []chat.ControllerOption{
			chat.WithNotifier(bridge),
			chat.WithOnChange(bridge.OnChange),
		}
		if !chatFlags.noArchive {
			archive, err := openArchive(dir)
			if err != nil {
				log.Warn().Err(err).Msg("transcript archive unavailable")
			} else {
				defer func() { _ = archive.Close() }()
				opts = append(opts, chat.WithArchiver(func(at chat.ArchivedTurn) {
					err := archive.Save(context.Background(), history.Transcript{
						SessionID:     at.SessionID,
						TurnID:        at.TurnID,
						UserMessage:   at.UserMessage,
						FinalResponse: at.FinalResponse,
						CompletedAtMs: at.CompletedAt.UnixMilli(),
					})
					if err != nil {
						log.Warn().Err(err).Msg("failed to archive turn")
					}
				}))
			}
		}

		ctx := cmd.Context()
		ctrl := chat.NewController(ctx, client, chat.APIStreamOpener(client), cfg.WorkspaceID, opts...)
		defer ctrl.Close()

		if chatFlags.sessionID != "" {
			go ctrl.LoadSession(ctx, chatFlags.sessionID)
		}

		p := tea.NewProgram(ui.NewModel(ctrl, store), tea.WithAltScreen())
		bridge.Attach(p)
		_, err = p.Run()
		return errors.Wrap(err, "chat UI failed")
	},
}

func openArchive(dir string) (history.TranscriptStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create state dir")
	}
	dsn, err := history.SQLiteDSNForFile(filepath.Join(dir, "transcripts.db"))
	if err != nil {
		return nil, err
	}
	return history.NewSQLiteTranscriptStore(dsn)
}

func init() {
	chatCmd.Flags().StringVar(&chatFlags.sessionID, "session", "", "resume an existing session")
	chatCmd.Flags().BoolVar(&chatFlags.noArchive, "no-archive", false, "do not archive completed turns locally")
	rootCmd.AddCommand(chatCmd)
}
