// Package app connects the configured backends and builds the assessment components.
package app

import (
	"context"
	"fmt"
	"time"

	"assessment-pipeline/internal/common/auth"
	"assessment-pipeline/internal/common/config"
	"assessment-pipeline/internal/common/database"
	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/common/observability"
	generateanalysis "assessment-pipeline/internal/workers/ai-analysis/generate-analysis"
	downloadtoken "assessment-pipeline/internal/workers/assessment/download-token"
	processsubmission "assessment-pipeline/internal/workers/assessment/process-submission"
	renderreport "assessment-pipeline/internal/workers/assessment/render-report"
	sendnotification "assessment-pipeline/internal/workers/communication/send-notification"
	submissionstore "assessment-pipeline/internal/workers/data-access/submission-store"
	"assessment-pipeline/pkg/catalog"
)

const (
	connectAttempts = 15
	connectDelay    = 2 * time.Second
)

// App holds the wired components. Close releases every connection it opened.
type App struct {
	Config        *config.Config
	Catalog       *catalog.Catalog
	Store         submissionstore.Store
	Redis         *database.RedisClient
	Signer        *auth.Signer
	Tokens        *downloadtoken.Service
	Coordinator   *processsubmission.Handler
	Observability *observability.Observability

	logger  logger.Logger
	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{Config: cfg, logger: log}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	cat, err := catalog.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	a.Catalog = cat

	if a.Store, err = a.openStore(ctx); err != nil {
		return err
	}

	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, rdb.Close)
	if err := a.connect(ctx, "redis", rdb.Ping); err != nil {
		return err
	}
	a.Redis = rdb

	if a.Signer, err = auth.NewSigner(cfg.Tokens.Secret); err != nil {
		return err
	}
	a.Tokens = downloadtoken.NewService(downloadtoken.LoadConfig(cfg), a.Signer, rdb.Client, a.logger)

	renderCfg := renderreport.LoadConfig(cfg)
	docRenderer, err := renderreport.NewRenderer(renderCfg, a.logger)
	if err != nil {
		return err
	}

	notifyCfg := sendnotification.LoadConfig(cfg)
	if err := notifyCfg.Validate(); err != nil {
		return fmt.Errorf("notifications: %w", err)
	}
	mailer, err := sendnotification.NewMailer(ctx, notifyCfg)
	if err != nil {
		return err
	}

	a.Observability = observability.New(cfg.App.Name)
	a.closers = append(a.closers, func() error {
		a.Observability.Shutdown()
		return nil
	})

	procCfg := processsubmission.LoadConfig(cfg)
	var locker processsubmission.Locker = processsubmission.NewLocalLocker()
	if procCfg.Lock == config.LockRedis {
		locker = processsubmission.NewRedisLocker(rdb.Client, procCfg.LockTTL)
	}

	a.Coordinator = processsubmission.NewHandler(procCfg, processsubmission.Dependencies{
		Store:         a.Store,
		Catalog:       cat,
		Analyser:      generateanalysis.NewHandler(generateanalysis.LoadConfig(cfg), cat, a.logger),
		Renderer:      renderreport.NewHandler(renderCfg, docRenderer, a.logger),
		Tokens:        a.Tokens,
		Notifier:      sendnotification.NewHandler(notifyCfg, mailer, a.logger),
		Locker:        locker,
		Observability: a.Observability,
	}, a.logger)

	a.logger.Info("components ready", map[string]interface{}{
		"backend":   cfg.Database.Backend,
		"renderer":  docRenderer.Name(),
		"transport": mailer.Name(),
		"providers": len(cfg.Providers),
		"questions": cat.Len(),
		"lock":      procCfg.Lock,
	})
	return nil
}

func (a *App) openStore(ctx context.Context) (submissionstore.Store, error) {
	cfg := a.Config.Database
	switch cfg.Backend {
	case config.BackendMemory:
		a.logger.Warn("using in-memory submission store, data is lost on restart", nil)
		return submissionstore.NewMemoryStore(), nil

	case config.BackendSQLite:
		client, err := database.NewSQLite(cfg.SQLite)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		store := submissionstore.NewSQLStore(client.DB, submissionstore.DialectSQLite, a.logger)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case config.BackendElasticsearch:
		client, err := database.NewElasticsearch(cfg.Elasticsearch)
		if err != nil {
			return nil, err
		}
		if err := a.connect(ctx, "elasticsearch", client.Ping); err != nil {
			return nil, err
		}
		if err := client.EnsureIndex(ctx, submissionstore.IndexMapping); err != nil {
			return nil, err
		}
		return submissionstore.NewElasticsearchStore(client.Client, client.Index, a.logger), nil

	default:
		client, err := database.NewPostgres(cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		if err := a.connect(ctx, "postgres", client.Ping); err != nil {
			return nil, err
		}
		store := submissionstore.NewSQLStore(client.DB, submissionstore.DialectPostgres, a.logger)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
}

func (a *App) connect(ctx context.Context, name string, ping func(context.Context) error) error {
	err := database.ConnectWithRetry(ctx, name, connectAttempts, connectDelay, ping,
		func(attempt int, delay time.Duration, err error) {
			a.logger.Warn(name+" connection failed, retrying", map[string]interface{}{
				"attempt":     attempt,
				"maxRetries":  connectAttempts,
				"nextRetryIn": delay.String(),
				"error":       err.Error(),
			})
		})
	if err != nil {
		return err
	}
	a.logger.Info(name+" connected successfully", nil)
	return nil
}

// Close runs the closers in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}
