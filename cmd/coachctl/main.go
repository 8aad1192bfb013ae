// coachctl is the operator CLI: schema migration, manual session analysis and dev tokens.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-coach/internal/app"
	"github.com/yungbote/neurobridge-coach/internal/pkg/dbctx"
	"github.com/yungbote/neurobridge-coach/internal/services"
)

var (
	tokenTTL   time.Duration
	tokenRoles []string
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coachctl",
		Short:         "Operate the coaching backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}

	analyze := &cobra.Command{
		Use:   "analyze <session-id>",
		Short: "Run post-session analysis for a completed session",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}

	token := &cobra.Command{
		Use:   "token <learner-id>",
		Short: "Issue a bearer token for a learner",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}
	token.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	token.Flags().StringSliceVar(&tokenRoles, "role", nil, "role to embed (repeatable)")

	root.AddCommand(migrate, analyze, token)
	return root
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	dbs, err := app.OpenDatabase(log, true)
	if err != nil {
		return err
	}
	defer dbs.Close()
	fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	sessionID, err := uuid.Parse(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", args[0], err)
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Services.Sessions.Analyze(services.SystemContext(cmd.Context()), sessionID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runToken(cmd *cobra.Command, args []string) error {
	learnerID, err := uuid.Parse(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("invalid learner id %q: %w", args[0], err)
	}
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Repos.Users.GetByID(dbctx.Context{Ctx: cmd.Context()}, learnerID); err != nil {
		return fmt.Errorf("lookup learner: %w", err)
	}
	tok, err := a.Services.Auth.IssueToken(learnerID, tokenRoles, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

func newApp(ctx context.Context) (*app.App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := app.NewLogger()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, log)
}
