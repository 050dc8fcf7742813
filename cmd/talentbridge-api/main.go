package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JoaChP/talentbridge-backend/internal/auth"
	"github.com/JoaChP/talentbridge-backend/internal/config"
	"github.com/JoaChP/talentbridge-backend/internal/events"
	"github.com/JoaChP/talentbridge-backend/internal/logging"
	"github.com/JoaChP/talentbridge-backend/internal/metrics"
	"github.com/JoaChP/talentbridge-backend/internal/mirror"
	"github.com/JoaChP/talentbridge-backend/internal/server"
	"github.com/JoaChP/talentbridge-backend/internal/store"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "talentbridge-api",
		Short: "TalentBridge marketplace backend service",
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
	cmd.PersistentFlags().String("database-path", defaults.GetString("local.database_path"), "Local mirror SQLite path")
	cmd.PersistentFlags().String("remote-endpoint", defaults.GetString("remote.endpoint"), "Remote mirror endpoint")
	cmd.PersistentFlags().String("remote-bin-id", defaults.GetString("remote.bin_id"), "Remote mirror document id")
	cmd.PersistentFlags().String("remote-api-key", "", "Remote mirror secret key (overrides env)")
	cmd.PersistentFlags().Int("token-ttl-minutes", defaults.GetInt("token.ttl_minutes"), "Session token TTL in minutes")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "local.database_path", "database-path")
	bindFlag(cmd, "remote.endpoint", "remote-endpoint")
	bindFlag(cmd, "remote.bin_id", "remote-bin-id")
	bindFlag(cmd, "remote.api_key", "remote-api-key")
	bindFlag(cmd, "token.ttl_minutes", "token-ttl-minutes")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	_ = godotenv.Load()

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

	metrics.Register()

	localMirror, err := mirror.OpenLocal(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer localMirror.Close()

	remoteMirror := mirror.NewRemoteMirror(mirror.RemoteMirrorConfig{
		Endpoint: appConfig.RemoteEndpoint,
		BinID:    appConfig.RemoteBinID,
		APIKey:   appConfig.RemoteAPIKey,
		Timeout:  appConfig.RemoteTimeout,
	})

	facade, err := mirror.NewFacade(mirror.FacadeConfig{
		Local:    localMirror,
		Remote:   remoteMirror,
		CacheTTL: appConfig.RemoteCacheTTL,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	initial, source, err := facade.Initialize(ctx)
	if err != nil {
		return err
	}
	logger.Info("snapshot initialized", zap.String("source", string(source)))

	tokenIssuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "talentbridge-auth",
		Audience:      "talentbridge-api",
		TokenTTL:      appConfig.TokenTTL,
	})

	bus := events.NewBus()

	entityStore, err := store.New(store.Config{
		Initial:   initial,
		Persister: facade,
		Notifier:  bus,
		Tokens:    tokenIssuer,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Store:  entityStore,
		Tokens: tokenIssuer,
		Bus:    bus,
		Remote: facade,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
		err := httpServer.Shutdown(shutdownCtx)
		facade.Wait()
		return err
	case err := <-errCh:
		return err
	}
}
