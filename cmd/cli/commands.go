package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/teamspace/internal/app"
	"github.com/aryan0dhankhar/teamspace/internal/domain"
)

func newUserCommand(run runner, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}

	var email, nickname, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a user account",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, e *env) error {
			res, err := e.svc.Auth.Register(ctx, email, nickname, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "created user %s (%s)\n", res.UserID, res.Email)
			return nil
		}),
	}
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&nickname, "nickname", "", "display name")
	create.Flags().StringVar(&password, "password", "", "initial password")
	for _, f := range []string{"email", "nickname", "password"} {
		_ = create.MarkFlagRequired(f)
	}

	cmd.AddCommand(create)
	return cmd
}

func newCatalogCommand(run runner, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{Use: "catalog", Short: "Manage the platform model catalog"}

	var m domain.LLM
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a model to the catalog",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, e *env) error {
			entry := m
			if err := e.svc.Repos.Catalog.Create(ctx, &entry); err != nil {
				return err
			}
			e.svc.Teams.InvalidateCatalog()
			fmt.Fprintf(out, "added %s@%s\n", entry.LLMName, entry.FID)
			return nil
		}),
	}
	add.Flags().StringVar(&m.FID, "factory", "", "provider name")
	add.Flags().StringVar(&m.LLMName, "name", "", "model name")
	add.Flags().StringVar(&m.ModelType, "type", domain.ModelTypeChat, "model type")
	add.Flags().IntVar(&m.MaxTokens, "max-tokens", 0, "context window")
	add.Flags().StringVar(&m.Tags, "tags", "", "comma separated tags")
	_ = add.MarkFlagRequired("factory")
	_ = add.MarkFlagRequired("name")

	var factory string
	list := &cobra.Command{
		Use:   "list",
		Short: "List catalog entries",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, e *env) error {
			var (
				entries []*domain.LLM
				err     error
			)
			if factory != "" {
				entries, err = e.svc.Teams.CatalogFor(ctx, factory)
			} else {
				entries, err = e.svc.Repos.Catalog.List(ctx)
			}
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FACTORY\tNAME\tTYPE\tMAX_TOKENS\tSTATUS")
			for _, l := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", l.FID, l.LLMName, l.ModelType, l.MaxTokens, l.Status)
			}
			return w.Flush()
		}),
	}
	list.Flags().StringVar(&factory, "factory", "", "only list VALID entries of this provider")

	cmd.AddCommand(add, list)
	return cmd
}

func newTeamCommand(run runner, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{Use: "team", Short: "Manage teams"}

	var ownerEmail, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a team owned by an existing user",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, e *env) error {
			owner, err := e.svc.Repos.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(ownerEmail)))
			if err != nil {
				return fmt.Errorf("failed to find owner %s: %w", ownerEmail, err)
			}
			tenant, err := e.svc.Teams.CreateTeam(ctx, owner.ID, name, app.TeamDefaults(e.cfg.Team))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "created team %s (%s) owned by %s\n", tenant.Name, tenant.ID, owner.Email)
			return nil
		}),
	}
	create.Flags().StringVar(&ownerEmail, "owner-email", "", "email of the founding owner")
	create.Flags().StringVar(&name, "name", "", "team name")
	_ = create.MarkFlagRequired("owner-email")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(create)
	return cmd
}
