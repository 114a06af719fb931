package cmds

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	input "github.com/tcnksm/go-input"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the workspace's chat sessions",
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
		sessions, err := client.ListSessions(cmd.Context(), cfg.WorkspaceID)
		if err != nil {
			return errors.Wrap(err, "list sessions failed")
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions")
			return nil
		}
		for _, s := range sessions {
			title := s.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Printf("%s  %-40s  %d turns  %s\n", s.ID, title, s.TurnCount, s.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		detail, err := client.GetSession(cmd.Context(), args[0])
		if err != nil {
			return errors.Wrap(err, "load session failed")
		}
		if detail.Title != "" {
			fmt.Printf("# %s\n\n", detail.Title)
		}
		for _, t := range detail.Turns {
			fmt.Printf("> %s\n\n", t.UserMessage)
			switch {
			case t.FinalResponse != nil:
				fmt.Printf("%s\n\n", *t.FinalResponse)
			case t.Status.Terminal():
				fmt.Printf("(%s)\n\n", t.Status)
			default:
				fmt.Printf("(still %s)\n\n", t.Status)
			}
		}
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <session-id> <title>",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		if err := client.RenameSession(cmd.Context(), args[0], args[1]); err != nil {
			return errors.Wrap(err, "rename failed")
		}
		fmt.Println("renamed")
		return nil
	},
}

var sessionsDeleteYes bool

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}
		if !sessionsDeleteYes {
			ui := &input.UI{Writer: os.Stdout, Reader: os.Stdin}
			answer, err := ui.Ask(fmt.Sprintf("Delete session %s? (y/N)", args[0]), &input.Options{
				Default:  "N",
				Required: false,
				Loop:     false,
			})
			if err != nil {
				return errors.Wrap(err, "confirmation failed")
			}
			if !strings.EqualFold(strings.TrimSpace(answer), "y") {
				fmt.Println("aborted")
				return nil
			}
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}
		if err := client.DeleteSession(cmd.Context(), args[0]); err != nil {
			return errors.Wrap(err, "delete failed")
		}
		fmt.Println("deleted")
		return nil
	},
}

func init() {
	sessionsDeleteCmd.Flags().BoolVarP(&sessionsDeleteYes, "yes", "y", false, "skip confirmation")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsRenameCmd, sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}
