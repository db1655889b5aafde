// Command bearerd serves bearer-token authenticators over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/adeilh/bearer/auth"
	"github.com/adeilh/bearer/config"
	"github.com/adeilh/bearer/httpx"
	"github.com/adeilh/bearer/internal/api"
	"github.com/labstack/gommon/log"
)

func main() {
	configPath := flag.String("config", os.Getenv("BEARER_CONFIG"), "path to a YAML config file")
	flag.Parse()

	logger := log.New("bearerd")
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalj(log.JSON{"msg": "load config", "error": err.Error()})
	}
	logger.SetLevel(cfg.Log.Lvl())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalj(log.JSON{"msg": "bearerd stopped", "error": err.Error()})
	}
}

func run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	backend, err := openStore(ctx, cfg.Store, auth.SystemClock)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.close(); err != nil {
			logger.Warnj(log.JSON{"msg": "close store", "error": err.Error()})
		}
	}()

	server, err := newServer(cfg, backend.store, logger)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	if backend.reaper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			auth.RunReaper(ctx, backend.reaper, auth.SystemClock, cfg.Store.ReapInterval, logger)
		}()
	}

	logger.Infoj(log.JSON{"msg": "listening", "address": cfg.Server.Address, "store": cfg.Store.Backend, "issue": cfg.Server.EnableIssue})
	err = server.Start(ctx, httpx.WithShutdownTimeout(cfg.Server.ShutdownTimeout))
	wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newServer(cfg config.Config, store auth.Store, logger *log.Logger) (*httpx.Server, error) {
	svc, err := auth.NewService(auth.ServiceConfig{
		Store:       store,
		IDGenerator: cfg.Auth.IDGenerator(),
		Settings:    cfg.Auth.Settings(),
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	responder := httpx.NewResponder(nil)
	mw, err := auth.NewMiddleware(svc, auth.WithErrorHandler(responder.AuthErrorHandler()))
	if err != nil {
		return nil, err
	}
	handler, err := api.New(svc, mw, api.Options{EnableIssue: cfg.Server.EnableIssue, Logger: logger})
	if err != nil {
		return nil, err
	}

	server := httpx.NewServer(
		httpx.WithAddress(cfg.Server.Address),
		httpx.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		httpx.WithLogger(logger),
		httpx.WithResponder(responder),
	)
	server.RegisterRoutes(handler.Register)
	return server, nil
}
