// Command ledgerctl runs ledger operations directly against the configured
// store, for operators working without the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"

	"inventory-ledger/config"
	"inventory-ledger/internal/auth"
	"inventory-ledger/internal/redisclient"
	"inventory-ledger/internal/report"
	"inventory-ledger/internal/service"
	"inventory-ledger/internal/store"
	"inventory-ledger/internal/util"

	"github.com/spf13/cobra"
)

// app is built once per invocation in the root PersistentPreRunE
type app struct {
	cfg       *config.Config
	adapter   store.Adapter
	session   *auth.Session
	inventory *service.InventoryService
	forecasts *service.ForecastService
	reports   *service.ReportService
	redis     *redisclient.Client
}

var (
	flagUser     string
	flagPassword string
	flagJSON     bool

	cli *app
)

var rootCmd = &cobra.Command{
	Use:           "ledgerctl",
	Short:         "Inventory ledger command line",
	Long:          `Reads and changes the inventory ledger using the storage settings from the environment (.env).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		cli = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cli == nil {
			return nil
		}
		if cli.redis != nil {
			cli.redis.Close()
		}
		return cli.adapter.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", os.Getenv("LEDGER_USER"), "username (LEDGER_USER)")
	rootCmd.PersistentFlags().StringVarP(&flagPassword, "password", "p", os.Getenv("LEDGER_PASSWORD"), "password (LEDGER_PASSWORD)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(productsCmd, sellCmd, transactionsCmd, salesCmd, forecastCmd, exportCmd)
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	adapter, err := store.Open(cfg.Storage.Driver, cfg.Storage.DataDir, cfg.Storage.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// with Redis configured the CLI takes the same inventory lock as the
	// server, so the two never interleave writes to one store
	var (
		locker      service.Locker
		redisClient *redisclient.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL)
		if err != nil {
			adapter.Close()
			return nil, err
		}
		locker = redisClient
	}

	inventory := service.NewInventoryService(adapter, nil, locker)
	if err := inventory.Load(ctx); err != nil {
		adapter.Close()
		return nil, err
	}

	// anonymous when no user is given; operations then report the login error
	sess := auth.Anonymous()
	if flagUser != "" {
		guard := auth.NewGuard(cfg.Auth.Credentials, auth.NewMemorySessionStore(), 0)
		sess, err = guard.Login(ctx, flagUser, flagPassword)
		if err != nil {
			adapter.Close()
			return nil, err
		}
	}

	renderer := report.NewPDFRenderer()
	return &app{
		cfg:       cfg,
		adapter:   adapter,
		session:   sess,
		inventory: inventory,
		forecasts: service.NewForecastService(inventory, renderer),
		reports:   service.NewReportService(inventory, renderer),
		redis:     redisClient,
	}, nil
}

func main() {
	defer util.SyncLogger()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
