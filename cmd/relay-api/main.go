package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pairhive/relay/internal/config"
	"github.com/pairhive/relay/internal/logging"
	"github.com/pairhive/relay/internal/metrics"
	"github.com/pairhive/relay/internal/relay"
	"github.com/pairhive/relay/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "relay-api",
		Short: "Pairhive collaborative editor relay service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("allowed-origins", defaults.GetString("cors.allowed_origins"), "Comma-separated CORS/websocket origin allowlist")
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address for the cross-instance event bus (empty disables the bus)")
	cmd.PersistentFlags().Int("redis-db", defaults.GetInt("redis.db"), "Redis database number")
	cmd.PersistentFlags().Int("send-buffer", defaults.GetInt("ws.send_buffer"), "Per-connection outbound frame buffer")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "cors.allowed_origins", "allowed-origins")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "redis.db", "redis-db")
	bindFlag(cmd, "ws.send_buffer", "send-buffer")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	collector := metrics.NewCollector()

	hub, err := server.NewHub(server.HubConfig{
		IDProvider:     server.NewUUIDProvider(),
		Metrics:        collector,
		AllowedOrigins: appConfig.AllowedOrigins,
		SendBuffer:     appConfig.SendBuffer,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var bus *relay.RedisBus
	if appConfig.RedisAddress != "" {
		bus, err = relay.NewRedisBus(signalCtx, relay.RedisBusConfig{
			Address: appConfig.RedisAddress,
			DB:      appConfig.RedisDB,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer bus.Close() //nolint:errcheck
	}

	serviceConfig := relay.ServiceConfig{
		Emitter:  hub,
		Observer: collector,
		Logger:   logger,
	}
	if bus != nil {
		serviceConfig.Bus = bus
	}
	relayService, err := relay.NewService(serviceConfig)
	if err != nil {
		return err
	}
	hub.Bind(relayService)

	if bus != nil {
		go bus.Subscribe(signalCtx, relayService.DeliverFromBus)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		StatusProvider: relayService,
		Hub:            hub,
		Metrics:        collector,
		AllowedOrigins: appConfig.AllowedOrigins,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
