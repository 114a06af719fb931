package cmds

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/spyglasshq/spyglass/pkg/api"
)

var sendFlags struct {
	sessionID string
	quiet     bool
}

// sendCmd is the non-interactive path: submit one prompt, follow the turn
// stream on stdout, exit when the turn finishes.
var sendCmd = &cobra.Command{
	Use:   "send [prompt...]",
	Short: "Send one prompt and stream the assistant's answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		prompt := strings.TrimSpace(strings.Join(args, " "))
		resp, err := client.SendMessage(ctx, api.SendRequest{
			Message:   prompt,
			SessionID: sendFlags.sessionID,
		})
		if err != nil {
			return errors.Wrap(err, "send failed")
		}
		if !sendFlags.quiet {
			fmt.Printf("session %s turn %s\n", resp.SessionID, resp.TurnID)
		}

		stream, err := client.StreamTurnEvents(ctx, resp.TurnID)
		if err != nil {
			return errors.Wrap(err, "could not open turn stream")
		}
		for ev := range stream.Events() {
			switch ev.Event {
			case api.EventToolStart:
				if !sendFlags.quiet {
					fmt.Printf("  ◦ %s ...\n", ev.ToolName)
				}
			case api.EventToolEnd:
				if !sendFlags.quiet {
					fmt.Printf("  ✓ %s %s\n", ev.StepID, ev.Status)
				}
			case api.EventComplete:
				fmt.Println(ev.FinalResponse)
				return nil
			case api.EventError:
				return errors.Errorf("assistant failed: %s", ev.Message)
			}
		}
		if err := stream.Err(); err != nil {
			return errors.Wrap(err, "turn stream ended")
		}
		return errors.New("turn stream closed before completion")
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendFlags.sessionID, "session", "", "continue an existing session")
	sendCmd.Flags().BoolVarP(&sendFlags.quiet, "quiet", "q", false, "print only the final answer")
	rootCmd.AddCommand(sendCmd)
}
