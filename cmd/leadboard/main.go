// Package main implements the leadboard CLI: a terminal board over the lead
// store API with bulk actions and file imports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"leadboard_backend/internal/board"
	"leadboard_backend/internal/bulk"
	"leadboard_backend/internal/leadstore"
	"leadboard_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "leadboard",
	Short:         "Lead board client",
	Long:          "leadboard shows leads grouped by stage, moves and reassigns them one by one or in bulk, and imports lead files into a campaign.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	apiURL   string
	apiToken string
	logEnv   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", envOr("LEADBOARD_API_URL", "http://localhost:8080"), "Lead store API root URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("LEADBOARD_TOKEN"), "Bearer token of the acting user")
	rootCmd.PersistentFlags().StringVar(&logEnv, "log-env", envOr("LEADBOARD_ENV", "production"), "Log format: development (text, debug) or production (json)")
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func bulkConcurrency() int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("LEADBOARD_BULK_CONCURRENCY")))
	if err != nil || n < 1 {
		return bulk.DefaultConcurrency
	}
	return n
}

func newClient() *leadstore.Client {
	return leadstore.New(leadstore.Config{BaseURL: apiURL, Token: apiToken})
}

func cliLogger(cmd *cobra.Command) *logger.Logger {
	return logger.NewWithWriter(logEnv, cmd.ErrOrStderr())
}

// loadBoard builds a board and fills it with the leads matching filter.
func loadBoard(ctx context.Context, cmd *cobra.Command, filter board.Filter) (*board.Board, error) {
	b := board.New(newClient(), cliLogger(cmd))
	b.LoadCatalog(ctx)
	if err := b.Refresh(ctx, filter); err != nil {
		return nil, fmt.Errorf("load leads: %w", err)
	}
	return b, nil
}

func parseIDs(args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(strings.TrimSpace(arg))
		if err != nil {
			return nil, fmt.Errorf("invalid lead id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseOptionalID(value, flag string) (*uuid.UUID, error) {
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q", flag, value)
	}
	return &id, nil
}
