// Command nimserver runs the misère Nim game server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dscraft07/nimserver/internal/config"
	"github.com/dscraft07/nimserver/internal/logger"
	"github.com/dscraft07/nimserver/internal/server"
)

func main() {
	cfg := config.Default()

	// CLI flags are an explicit non-goal; plain stdlib flag is plenty for
	// a handful of startup knobs.
	flag.StringVar(&cfg.BindAddress, "bind", cfg.BindAddress, "address to listen on")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flag.IntVar(&cfg.MaxClients, "max-clients", cfg.MaxClients, "maximum simultaneous connections")
	flag.IntVar(&cfg.MaxRooms, "max-rooms", cfg.MaxRooms, "maximum simultaneous rooms")
	flag.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log to stdout instead of the log file")
	flag.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "log file path when not verbose")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("nimserver: %v", err)
	}

	lg, err := logger.New(cfg.Verbose, cfg.LogFile)
	if err != nil {
		log.Fatalf("nimserver: %v", err)
	}
	defer lg.Sync()

	lg.Info("starting nimserver",
		zap.String("bind", cfg.BindAddress),
		zap.Int("port", cfg.Port),
		zap.Int("max_clients", cfg.MaxClients),
		zap.Int("max_rooms", cfg.MaxRooms),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, lg)
	if err := srv.Run(ctx); err != nil {
		lg.Error("server exited", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
