package cmds

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/spyglasshq/spyglass/pkg/config"
	"github.com/spyglasshq/spyglass/pkg/history"
)

var historyFlags struct {
	sessionID string
	limit     int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse locally archived turns (works offline)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir, err := config.DefaultDir()
		if err != nil {
			return err
		}
		archive, err := openArchive(dir)
		if err != nil {
			return errors.Wrap(err, "open transcript archive")
		}
		defer func() { _ = archive.Close() }()

		items, err := archive.List(cmd.Context(), history.Query{
			SessionID: historyFlags.sessionID,
			Limit:     historyFlags.limit,
		})
		if err != nil {
			return errors.Wrap(err, "list transcripts failed")
		}
		if len(items) == 0 {
			fmt.Println("no archived turns")
			return nil
		}
		for _, t := range items {
			fmt.Printf("[%s] session %s turn %s\n> %s\n%s\n\n",
				t.CompletedAt().Format("2006-01-02 15:04"), t.SessionID, t.TurnID, t.UserMessage, t.FinalResponse)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyFlags.sessionID, "session", "", "filter by session id")
	historyCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "maximum turns to show")
	rootCmd.AddCommand(historyCmd)
}
