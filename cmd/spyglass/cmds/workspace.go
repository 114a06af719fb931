package cmds

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/spyglasshq/spyglass/pkg/api"
	"github.com/spyglasshq/spyglass/pkg/config"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the workspace's monitored services",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, cfg, err := workspaceClient()
		if err != nil {
			return err
		}
		services, err := client.ListServices(cmd.Context(), cfg.WorkspaceID)
		if err != nil {
			return errors.Wrap(err, "list services failed")
		}
		for _, s := range services {
			fmt.Printf("%s  %-30s  %-12s  %s\n", s.ID, s.Name, s.Environment, s.Status)
		}
		return nil
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the workspace's API keys",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, cfg, err := workspaceClient()
		if err != nil {
			return err
		}
		keys, err := client.ListAPIKeys(cmd.Context(), cfg.WorkspaceID)
		if err != nil {
			return errors.Wrap(err, "list api keys failed")
		}
		for _, k := range keys {
			lastUsed := "never"
			if k.LastUsedAt != nil {
				lastUsed = k.LastUsedAt.Format("2006-01-02 15:04")
			}
			fmt.Printf("%s  %-30s  %s...  last used %s\n", k.ID, k.Name, k.Prefix, lastUsed)
		}
		return nil
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the workspace's configured LLM providers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, cfg, err := workspaceClient()
		if err != nil {
			return err
		}
		providers, err := client.ListProviders(cmd.Context(), cfg.WorkspaceID)
		if err != nil {
			return errors.Wrap(err, "list providers failed")
		}
		for _, p := range providers {
			marker := " "
			if p.Default {
				marker = "*"
			}
			fmt.Printf("%s %s  %-12s  %s\n", marker, p.ID, p.Kind, p.Model)
		}
		return nil
	},
}

// workspaceOverviewCmd fetches the settings surfaces in parallel.
var workspaceOverviewCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Show a workspace overview (services, environments, members)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, cfg, err := workspaceClient()
		if err != nil {
			return err
		}

		var (
			services     []api.Service
			environments []api.Environment
			members      []api.Member
		)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			var err error
			services, err = client.ListServices(ctx, cfg.WorkspaceID)
			return err
		})
		g.Go(func() error {
			var err error
			environments, err = client.ListEnvironments(ctx, cfg.WorkspaceID)
			return err
		})
		g.Go(func() error {
			var err error
			members, err = client.ListMembers(ctx, cfg.WorkspaceID)
			return err
		})
		if err := g.Wait(); err != nil {
			return errors.Wrap(err, "workspace overview failed")
		}

		fmt.Printf("workspace %s\n\n", cfg.WorkspaceID)
		fmt.Printf("environments (%d):\n", len(environments))
		for _, e := range environments {
			fmt.Printf("  %s  %s\n", e.ID, e.Name)
		}
		fmt.Printf("\nservices (%d):\n", len(services))
		for _, s := range services {
			fmt.Printf("  %s  %-30s  %s\n", s.ID, s.Name, s.Status)
		}
		fmt.Printf("\nmembers (%d):\n", len(members))
		for _, m := range members {
			fmt.Printf("  %s  %-30s  %s\n", m.ID, m.Email, m.Role)
		}
		return nil
	},
}

func workspaceClient() (*api.Client, *config.Config, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := requireWorkspace(cfg); err != nil {
		return nil, nil, err
	}
	client, err := newClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

func init() {
	rootCmd.AddCommand(servicesCmd, keysCmd, providersCmd, workspaceOverviewCmd)
}
