package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RaikyD/backoffice-dashboard/internal/application"
	"github.com/RaikyD/backoffice-dashboard/internal/config"
	"github.com/RaikyD/backoffice-dashboard/internal/logger"
	"github.com/RaikyD/backoffice-dashboard/internal/remote"
)

var (
	apiURL   string
	email    string
	password string
	verbose  bool
	timeout  time.Duration

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "backofficectl",
	Short: "Query the back-office remote store from the terminal",
	Long: `backofficectl logs into the back-office API, loads a collection and
prints one filtered page of it.

Credentials default to API_EMAIL and API_PASSWORD, the API address to
API_BASE_URL; a .env file in the working directory is honored.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger.Init(level, "console")

		var err error
		if cfg, err = config.LoadConfig(); err != nil {
			return err
		}
		if apiURL == "" {
			apiURL = cfg.API_BASE_URL
		}
		if email == "" {
			email = cfg.API_EMAIL
		}
		if password == "" {
			password = cfg.API_PASSWORD
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "remote store base URL (default $API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "login email (default $API_EMAIL)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "login password (default $API_PASSWORD)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall command timeout")

	rootCmd.AddCommand(ordersCmd(), customersCmd(), storesCmd(), channelsCmd(), summaryCmd())
}

// connect logs in and returns a dashboard bound to the session.
func connect(ctx context.Context) (*application.Dashboard, error) {
	client, err := remote.NewClient(apiURL, remote.WithTimeout(cfg.HTTP_CLIENT_TIMEOUT))
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, fmt.Errorf("no credentials: pass --email/--password or set API_EMAIL/API_PASSWORD")
	}
	if err := client.Login(ctx, email, password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return application.NewDashboard(client, application.Options{PageSize: cfg.PAGE_SIZE})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
