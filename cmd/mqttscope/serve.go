package mqttscope

import (
	"cmp"
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mqttscope/mqttscope/pkg/acl"
	"github.com/mqttscope/mqttscope/pkg/broker"
	"github.com/mqttscope/mqttscope/pkg/metrics"
	"github.com/mqttscope/mqttscope/pkg/pgrest"
	"github.com/mqttscope/mqttscope/pkg/poller"
	"github.com/mqttscope/mqttscope/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long:  `Starts the HTTP server the browser dashboard talks to, plus the background poller, broker probe, and metrics listener`,
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringP("listenAddr", "l", "", "dashboard API listen address")
	f.StringP("dataAPI.url", "d", "", "PostgREST-compatible data API base URL")
	f.String("dataAPI.token", "", "bearer token for the data API")
	f.String("broker.url", "", "MQTT broker URL for the live probe")
	f.String("acl.connString", "", "PostgreSQL connection string for ACL management")
	f.Duration("poll.interval", 0, "poll interval for the default dashboard window")
	f.Bool("metrics.enabled", false, "expose Prometheus metrics")

	viper.BindPFlags(f)
	rootCmd.AddCommand(serveCmd)
}

func newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// flag overrides
	if addr := viper.GetString("listenAddr"); addr != "" {
		cfg.ListenAddr = addr
	}
	dataURL := cmp.Or(
		viper.GetString("dataAPI.url"),
		os.Getenv("MQTTSCOPE_DATA_API_URL"),
		cfg.DataAPI.URL,
	)
	if dataURL == "" {
		logger.Fatal("data API URL required")
	}

	client := pgrest.NewClient(dataURL,
		pgrest.WithToken(cmp.Or(viper.GetString("dataAPI.token"), cfg.DataAPI.Token)),
		pgrest.WithTimeout(cfg.DataAPI.Timeout),
		pgrest.WithLogger(logger.Named("pgrest")),
	)

	p := poller.New(client, poller.Config{
		Interval:          cfg.Poll.Interval,
		Range:             cfg.Poll.Range,
		ObservationsTable: cfg.DataAPI.ObservationsTable,
		EventsTable:       cfg.DataAPI.EventsTable,
		Series:            cfg.Poll.Series,
	}, logger.Named("poller"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx)
	}()

	var probe *broker.Probe
	if brokerURL := cmp.Or(viper.GetString("broker.url"), cfg.Broker.URL); brokerURL != "" {
		probe = broker.New(broker.Options{
			URL:      brokerURL,
			Username: cfg.Broker.Username,
			Password: cfg.Broker.Password,
			ClientID: cfg.Broker.ClientID,
		}, logger.Named("broker"))
		if err := probe.Connect(); err != nil {
			// The dashboard still works without the probe; charts come from
			// the data API.
			logger.Warn("broker probe unavailable", zap.Error(err))
		} else {
			defer probe.Disconnect()
		}
	}

	var store *acl.Store
	if connString := cmp.Or(viper.GetString("acl.connString"), cfg.ACL.ConnString); connString != "" {
		pool, err := pgxpool.New(ctx, connString)
		if err != nil {
			logger.Fatal("failed to create ACL connection pool", zap.Error(err))
		}
		defer pool.Close()
		store = acl.NewStore(pool)
	}

	if cfg.Metrics.Enabled || viper.GetBool("metrics.enabled") {
		metrics.StartServer(ctx, &wg, logger.Named("metrics"), &metrics.ServerOpts{Addr: cfg.Metrics.Addr})
	}

	srv := server.New(server.Options{
		Source:            client,
		Poller:            p,
		ACL:               store,
		Probe:             probe,
		Logger:            logger,
		ObservationsTable: cfg.DataAPI.ObservationsTable,
		EventsTable:       cfg.DataAPI.EventsTable,
		Series:            cfg.Poll.Series,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-stop:
		logger.Info("received termination signal, shutting down")
	case err := <-errChan:
		logger.Error("server error", zap.Error(err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	wg.Wait()
	logger.Info("shutdown complete")
	return nil
}
