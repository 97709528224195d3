package tesoro

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tesoro-project/tesoro/pkg/cache/basic"
	"github.com/tesoro-project/tesoro/pkg/config"
	"github.com/tesoro-project/tesoro/pkg/publicapi"
	"github.com/tesoro-project/tesoro/pkg/system"
	"github.com/tesoro-project/tesoro/pkg/treasurydb"
	"github.com/tesoro-project/tesoro/pkg/treasurydb/inmemory"
	"github.com/tesoro-project/tesoro/pkg/treasurydb/postgres"
)

var configFile string
var hostAddress string
var hostPort int
var postgresDSN string

func init() { //nolint:gochecknoinits // Using init in cobra command is idomatic
	serveCmd.PersistentFlags().StringVar(
		&configFile, "config", "",
		`Path to a YAML config file. Defaults and TESORO_* env vars apply without one.`,
	)
	serveCmd.PersistentFlags().StringVar(
		&hostAddress, "host", "",
		`The host to listen on, overriding the config.`,
	)
	serveCmd.PersistentFlags().IntVar(
		&hostPort, "port", 0,
		`The port to listen on, overriding the config.`,
	)
	serveCmd.PersistentFlags().StringVar(
		&postgresDSN, "postgres-dsn", "",
		`Postgres connection string, overriding the config. Empty runs in-memory.`,
	)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tesoro API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if hostAddress != "" {
			cfg.API.Host = hostAddress
		}
		if hostPort != 0 {
			cfg.API.Port = hostPort
		}
		if postgresDSN != "" {
			cfg.Postgres.DSN = postgresDSN
		}

		// Cleanup manager ensures that resources are freed before exiting:
		cm := system.NewCleanupManager()
		defer cm.Cleanup()

		// Ctrl-C triggers the same cleanup path, which shuts the
		// listener down and unblocks ListenAndServe below.
		cm.CleanupOnSignal(nil)

		ctx := cmd.Context()

		store, err := openStore(ctx, cm, cfg)
		if err != nil {
			return err
		}

		c, err := basic.NewCache[any](
			basic.WithDefaultTTL(cfg.Cache.DefaultTTL),
			basic.WithCleanupFrequency(cfg.Cache.CleanupFrequency),
		)
		if err != nil {
			return err
		}
		cm.RegisterCallback(func() error {
			c.Close()
			return nil
		})

		apiServer := publicapi.NewServer(
			cfg.API.Host, cfg.API.Port, store, c,
			&publicapi.APIServerConfig{
				ReadHeaderTimeout:     cfg.API.ReadHeaderTimeout,
				ReadTimeout:           cfg.API.ReadTimeout,
				WriteTimeout:          cfg.API.WriteTimeout,
				RequestHandlerTimeout: cfg.API.RequestHandlerTimeout,
				RateLimitPerSecond:    cfg.API.RateLimitPerSecond,
			},
		)

		log.Info().Msgf("Tesoro API listening on %s", apiServer.GetURI())
		return apiServer.ListenAndServe(ctx, cm)
	},
}

func openStore(ctx context.Context, cm *system.CleanupManager, cfg *config.Config) (treasurydb.Store, error) {
	if cfg.Postgres.DSN == "" {
		log.Info().Msg("no postgres DSN configured, running on the in-memory store")
		store, err := inmemory.NewInMemoryStore()
		if err != nil {
			return nil, err
		}
		cm.RegisterCallback(store.Close)
		return store, nil
	}

	store, err := postgres.NewPostgresStore(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	cm.RegisterCallback(store.Close)
	return store, nil
}
