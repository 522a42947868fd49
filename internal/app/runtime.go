package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/starnight-hq/starnight-client/internal/config"
	"github.com/starnight-hq/starnight-client/internal/logger"
	"github.com/starnight-hq/starnight-client/internal/maintenance"
	"github.com/starnight-hq/starnight-client/internal/storage"
	"github.com/starnight-hq/starnight-client/pkg/httpclient"
	"github.com/starnight-hq/starnight-client/pkg/publishers"
)

// Runtime owns the long-lived pieces of a client process: the session client,
// its cookie store, the maintenance navigator and the event publishers.
type Runtime struct {
	cfg       *config.Config
	client    *httpclient.SessionClient
	navigator *maintenance.PageNavigator
	fanout    *publishers.Fanout
	observer  *publishers.FanoutObserver
	store     storage.Store
	log       logger.Logger
}

// NewRuntime builds a runtime from config.
func NewRuntime(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := storage.NewStore(cfg.SessionStoreType, cfg.SessionStorePath, storage.Options{
		SessionTTL:      cfg.SessionTTL,
		CleanupInterval: cfg.SessionCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}
	log.InfoObj("session store initialized", "session_store_config", map[string]any{
		"type":                     cfg.SessionStoreType,
		"path":                     cfg.SessionStorePath,
		"session_ttl_seconds":      int(cfg.SessionTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.SessionCleanupInterval.Seconds()),
	})

	jar, err := storage.NewJar(store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init cookie jar: %w", err)
	}

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	observer := publishers.NewFanoutObserver(fanout, cfg.AppName, log)

	navigator, err := maintenance.NewPageNavigator(cfg.AppOrigin, nil, log)
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init maintenance navigator: %w", err)
	}

	client, err := httpclient.NewSessionClient(httpclient.Options{
		BaseURL:         cfg.BaseURL,
		Timeout:         cfg.RequestTimeout,
		ProbeTimeout:    cfg.ProbeTimeout,
		Jar:             jar,
		RefreshPath:     cfg.RefreshPath,
		ProbePath:       cfg.ProbePath,
		MaintenancePath: cfg.MaintenancePath,
		PublicPaths:     cfg.PublicPaths,
		Navigator:       navigator,
		Observer:        observer,
		Logger:          log,
	})
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init session client: %w", err)
	}
	log.InfoObj("session client ready", "client_config", map[string]any{
		"base_url":         client.BaseURL(),
		"app_origin":       cfg.AppOrigin,
		"public_paths":     cfg.PublicPaths,
		"publishers_count": fanout.Size(),
	})

	return &Runtime{
		cfg:       cfg,
		client:    client,
		navigator: navigator,
		fanout:    fanout,
		observer:  observer,
		store:     store,
		log:       log,
	}, nil
}

// buildFanout loads the optional publishers file. No file means no publishers.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]any, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]any{
			"id":    pubCfg.ID,
			"type":  pubCfg.Type,
			"kinds": pubCfg.Kinds,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Client returns the shared session client.
func (r *Runtime) Client() *httpclient.SessionClient { return r.client }

// Navigator returns the maintenance navigator the client escalates to.
func (r *Runtime) Navigator() *maintenance.PageNavigator { return r.navigator }

// Close drains pending event deliveries, then releases publishers and the session store.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	r.observer.Wait()

	var errs []error
	if err := r.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session store: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		r.log.ErrorObj("runtime shutdown incomplete", "error", err)
		return err
	}
	return nil
}
