package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"solar_controller/internal/config"
	"solar_controller/internal/handlers"
	"solar_controller/internal/logger"
	"solar_controller/internal/mqtt"
	"solar_controller/internal/repository"
	"solar_controller/internal/repository/db"
	"solar_controller/internal/server"
	"solar_controller/internal/service"
	"solar_controller/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := pflag.StringP("config", "c", "configs/config.yml", "path to the YAML config file")
	issueToken := pflag.String("issue-token", "", "print a bearer token for this subject and exit")
	tokenTTL := pflag.Duration("token-ttl", 24*time.Hour, "lifetime of a token printed by --issue-token")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	if *issueToken != "" {
		printToken(cfg, *issueToken, *tokenTTL, log)
		return
	}

	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "path", cfg.DB.Path, "err", err)
	}
	defer closeDB(conn, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// wire dependencies
	repos := repository.NewRepository(conn)
	ctrl, err := service.NewController(cfg, repos, transport.NewOpener(cfg, log.Named("serial")), log)
	if err != nil {
		log.Fatalw("invalid channel configuration", "err", err)
	}
	if err := ctrl.Start(ctx); err != nil {
		log.Fatalw("failed to start controller", "err", err)
	}
	services := service.NewService(ctrl, cfg)

	if cfg.MQTT.Enabled {
		runMQTTBridge(ctx, cfg.MQTT, services, log.Named("mqtt"))
	}

	srv := &server.Server{}
	apiHandler := handlers.NewHandler(services, cfg.HTTP, log)
	runHTTPServer(srv, server.Addr(cfg.HTTP.Address, cfg.HTTP.Port), apiHandler, log)

	waitForShutdown(cancel, srv, log)
}

func printToken(cfg config.Config, subject string, ttl time.Duration, log *logger.Logger) {
	token, err := service.NewAuthService(cfg.HTTP.TokenSecret).IssueToken(subject, ttl)
	if err != nil {
		log.Fatalw("failed to issue token", "err", err)
	}
	fmt.Println(token)
}

func closeDB(conn *sql.DB, log *logger.Logger) {
	if err := conn.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}

// runMQTTBridge connects to the broker and mirrors the rig until ctx ends.
// A broker that is down at start-up only disables the bridge.
func runMQTTBridge(ctx context.Context, cfg config.MQTTConfig, rig mqtt.Rig, log *logger.Logger) {
	client, err := mqtt.Connect(cfg, log)
	if err != nil {
		log.Errorw("mqtt bridge disabled", "broker", cfg.Broker, "err", err)
		return
	}
	bridge := mqtt.NewBridge(client, rig, cfg, log)
	go func() {
		defer client.Close()
		if err := bridge.Run(ctx); err != nil {
			log.Errorw("mqtt bridge stopped", "err", err)
		}
	}()
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, addr string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http server listening", "addr", addr)
		if err := srv.Run(addr, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stops the serial link and the mqtt bridge
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
