package cmds

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/spyglasshq/spyglass/pkg/api"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <turn-id> <up|down>",
	Short: "Score an assistant answer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score := api.FeedbackScore(args[1])
		if !score.Valid() {
			return errors.Errorf("score must be %q or %q", api.FeedbackUp, api.FeedbackDown)
		}
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		if err := client.SubmitFeedback(cmd.Context(), args[0], score); err != nil {
			return errors.Wrap(err, "submit feedback failed")
		}
		fmt.Println("thanks for the feedback")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
}
