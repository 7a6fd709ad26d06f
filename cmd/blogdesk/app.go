package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"blogdesk/internal/api"
	"blogdesk/internal/config"
	"blogdesk/internal/observability"
	"blogdesk/internal/router"
	"blogdesk/internal/storage"
	"blogdesk/internal/store"
)

// app is the wired process: one store, one router, one client.
type app struct {
	cfg      *config.Config
	client   *api.Client
	router   *router.Router
	store    *store.Store
	out      io.Writer
	shutdown func(context.Context) error
}

func bootstrap(ctx context.Context, global globalFlags, out io.Writer) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	if err := applyOverrides(cfg, global); err != nil {
		return nil, err
	}

	observability.SetLogger(observability.NewLogger(os.Stderr, cfg.Env, cfg.LogLevel))

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "blogdesk",
		Environment:  cfg.Env,
		Enabled:      cfg.TracingEnabled,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplerRatio: cfg.TracingSampler,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	st, err := storage.Open(ctx, storage.Options{
		Driver:    cfg.StorageDriver,
		Path:      cfg.StoragePath,
		RedisURL:  cfg.RedisURL,
		Namespace: cfg.StorageNamespace,
	})
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageDriver, err)
	}

	client := api.New(cfg.APIBaseURL, api.WithTimeout(cfg.RequestTimeout))
	rt := router.New(router.NewTable(router.DefaultRoutes()))
	s := store.New(store.Deps{
		Client:    client,
		Storage:   st,
		Navigator: rt,
		Locale:    cfg.Locale,
	})
	rt.Bind(s)

	if err := s.Init(ctx); err != nil {
		observability.Logger.WarnContext(ctx, "could not fully restore local state", "error", err)
	}

	return &app{cfg: cfg, client: client, router: rt, store: s, out: out, shutdown: shutdown}, nil
}

func applyOverrides(cfg *config.Config, g globalFlags) error {
	if g.apiBaseURL != "" {
		cfg.APIBaseURL = g.apiBaseURL
	}
	if g.storage != "" {
		cfg.StorageDriver = g.storage
	}
	if g.locale != "" {
		cfg.Locale = g.locale
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (a *app) close() {
	ctx := context.Background()
	if err := errors.Join(a.store.Close(), a.shutdown(ctx)); err != nil {
		observability.Logger.Warn("shutdown error", "error", err)
	}
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
