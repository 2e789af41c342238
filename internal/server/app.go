// Package server wires the back office together: storage, caches, brokers,
// use cases and the HTTP and gRPC surfaces.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-backoffice/config"
	"github.com/fekuna/omnipos-backoffice/internal/catalogue"
	catH "github.com/fekuna/omnipos-backoffice/internal/catalogue/handler"
	catRepoPkg "github.com/fekuna/omnipos-backoffice/internal/catalogue/repository"
	catUCPkg "github.com/fekuna/omnipos-backoffice/internal/catalogue/usecase"
	"github.com/fekuna/omnipos-backoffice/internal/channel"
	"github.com/fekuna/omnipos-backoffice/internal/draft"
	draftRepoPkg "github.com/fekuna/omnipos-backoffice/internal/draft/repository"
	draftUCPkg "github.com/fekuna/omnipos-backoffice/internal/draft/usecase"
	"github.com/fekuna/omnipos-backoffice/internal/editor"
	editorH "github.com/fekuna/omnipos-backoffice/internal/editor/handler"
	editorRepoPkg "github.com/fekuna/omnipos-backoffice/internal/editor/repository"
	editorUCPkg "github.com/fekuna/omnipos-backoffice/internal/editor/usecase"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/broker"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/cache"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/logger"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/memdb"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/postgres"
	"github.com/fekuna/omnipos-backoffice/internal/pkg/search"
	"github.com/fekuna/omnipos-backoffice/internal/session"
	"github.com/fekuna/omnipos-backoffice/internal/validation"
	"github.com/fekuna/omnipos-backoffice/internal/validation/checks"
	validationH "github.com/fekuna/omnipos-backoffice/internal/validation/handler"
	validationRepoPkg "github.com/fekuna/omnipos-backoffice/internal/validation/repository"
	validationUCPkg "github.com/fekuna/omnipos-backoffice/internal/validation/usecase"
	"github.com/fekuna/omnipos-backoffice/internal/variation"
	"go.uber.org/zap"
)

// App holds the wired use cases and the resources to release on Close.
type App struct {
	Config     *config.Config
	Logger     logger.ZapLogger
	Catalogue  catalogue.UseCase
	Drafts     draft.UseCase
	Editor     editor.UseCase
	Validation validation.UseCase
	Handlers   Handlers

	// Listener is nil when promotions are delivered in-process.
	Listener *channel.PromotionListener

	closers []func() error
}

type repositories struct {
	catalogue  catalogue.Repository
	drafts     draft.Repository
	pages      editor.PageRepository
	validation validation.Repository
	tx         catalogue.TxManager
}

// Build connects to every configured backend. Optional backends that are not
// configured are replaced by in-process equivalents.
func Build(ctx context.Context, cfg *config.Config, log logger.ZapLogger) (*App, error) {
	app := &App{Config: cfg, Logger: log}

	repos, err := app.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	// Redis backs the editor sessions and the search cache.
	var sessions session.Store = session.NewMemoryStore()
	var catOpts []catUCPkg.Option
	if cfg.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, redisClient.Close)
		sessions = session.NewRedisStore(redisClient.Client, cfg.Redis.SessionTTL)
		catOpts = append(catOpts, catUCPkg.WithCache(redisClient))
		log.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	if len(cfg.Elastic.Addresses) > 0 {
		esClient, err := search.NewClient(&search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			log.Warn("Could not connect to Elasticsearch, search falls back to the database", zap.Error(err))
		} else {
			catOpts = append(catOpts, catUCPkg.WithSearchIndex(esClient, cfg.Elastic.Index))
			log.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	app.Catalogue = catUCPkg.NewCatalogueUseCase(repos.catalogue, repos.tx, log, catOpts...)

	var platform channel.Platform = channel.NopPlatform{}
	var checkedPlatform channel.Platform
	if cfg.Platform.BaseURL != "" {
		platform = channel.NewHTTPPlatform(cfg.Platform.BaseURL, cfg.Platform.Timeout)
		checkedPlatform = platform
	}

	// Promotions go through Kafka when brokers are configured.
	var publisher draft.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		brokerCfg := &broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.PromotionsTopic,
			GroupID: cfg.Kafka.GroupID,
		}
		producer := broker.NewProducer(brokerCfg)
		consumer := broker.NewConsumer(brokerCfg)
		app.closers = append(app.closers, producer.Close, consumer.Close)
		publisher = channel.NewPublisher(producer)
		app.Listener = channel.NewPromotionListener(consumer, app.Catalogue, platform, log)
		log.Info("Connected to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.PromotionsTopic))
	} else {
		publisher = channel.NewDirectPublisher(channel.NewPromotionListener(nil, app.Catalogue, platform, log))
	}

	app.Drafts = draftUCPkg.NewDraftUseCase(repos.drafts, repos.catalogue, app.Catalogue, repos.tx, log,
		draftUCPkg.WithPublisher(publisher))
	variations := variation.NewService(app.Drafts, app.Catalogue, repos.tx, log)
	app.Editor = editorUCPkg.NewEditorUseCase(app.Drafts, variations, app.Catalogue, repos.pages, sessions, repos.tx, log)

	registry := validation.NewRegistry()
	checks.Register(registry, checks.Deps{Repo: repos.catalogue, Catalogue: app.Catalogue, Platform: checkedPlatform})
	app.Validation = validationUCPkg.NewValidationUseCase(registry, repos.validation, repos.tx, log)

	app.Handlers = Handlers{
		Editor:     editorH.NewEditorHandler(app.Editor, cfg.Editor.Prefix, log),
		Catalogue:  catH.NewCatalogueHandler(app.Catalogue, log),
		Validation: validationH.NewValidationHandler(app.Validation, log),
	}
	return app, nil
}

func (a *App) openStorage(ctx context.Context) (*repositories, error) {
	cfg := a.Config
	if !cfg.Postgres.Disabled {
		db, err := postgres.NewPostgres(&postgres.Config{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		})
		switch {
		case err == nil:
			a.closers = append(a.closers, db.Close)
			if err := postgres.EnsureSchema(ctx, db); err != nil {
				a.Close()
				return nil, err
			}
			a.Logger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))
			return &repositories{
				catalogue:  catRepoPkg.NewPGRepository(db),
				drafts:     draftRepoPkg.NewPGRepository(db),
				pages:      editorRepoPkg.NewPGRepository(db),
				validation: validationRepoPkg.NewPGRepository(db),
				tx:         postgres.NewTxManager(db),
			}, nil
		case !cfg.IsDevelopment():
			return nil, err
		}
		a.Logger.Warn("Could not connect to PostgreSQL, using the in-memory database", zap.Error(err))
	}

	db := memdb.New()
	return &repositories{
		catalogue:  catRepoPkg.NewMemRepository(db),
		drafts:     draftRepoPkg.NewMemRepository(db),
		pages:      editorRepoPkg.NewMemRepository(db),
		validation: validationRepoPkg.NewMemRepository(db),
		tx:         db,
	}, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
