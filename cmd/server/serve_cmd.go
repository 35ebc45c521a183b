package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/healthcampaign/project-factory/internal/api"
	"github.com/healthcampaign/project-factory/internal/bulk"
	"github.com/healthcampaign/project-factory/internal/cache"
	"github.com/healthcampaign/project-factory/internal/client"
	"github.com/healthcampaign/project-factory/internal/config"
	"github.com/healthcampaign/project-factory/internal/db"
	"github.com/healthcampaign/project-factory/internal/events"
	"github.com/healthcampaign/project-factory/internal/localization"
	"github.com/healthcampaign/project-factory/internal/mapping"
	"github.com/healthcampaign/project-factory/internal/pipeline"
	"github.com/healthcampaign/project-factory/internal/reconcile"
	"github.com/healthcampaign/project-factory/internal/repository"
	"github.com/healthcampaign/project-factory/internal/resource"
	"github.com/healthcampaign/project-factory/internal/schema"
	"github.com/healthcampaign/project-factory/internal/sheet"
	"github.com/healthcampaign/project-factory/internal/validation"
)

func newServeCmd(configPath *string) *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log, !skipMigrations)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not apply pending migrations on start")
	return cmd
}

func serve(parent context.Context, cfg config.Config, log *logrus.Entry, migrate bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if migrate {
		if err := db.RunMigrations(cfg.Database, log); err != nil {
			return err
		}
	}
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	resources := repository.NewResourceDetailsRepository(conn.Pool)
	projector := events.NewProjector(cfg.Kafka.Topics, resources,
		repository.NewActivityRepository(conn.Pool),
		repository.NewCampaignRepository(conn.Pool),
		repository.NewProcessTrackRepository(conn.Pool),
	)

	emitters := []events.Emitter{projector}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka := events.NewKafkaEmitter(cfg.Kafka.Brokers, log.WithField("component", "kafka"))
		defer func() { _ = kafka.Close() }()
		emitters = append([]events.Emitter{kafka}, emitters...)
	}
	publisher := events.NewPublisher(events.Tee(emitters...), cfg.Kafka.Topics, cfg.Pipeline.EmitDelay, log.WithField("component", "events"))

	var store cache.Cache = cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.TTL)
	if cfg.Redis.URL != "" {
		redis, err := cache.NewRedisCacheFromURL(cfg.Redis.URL, cfg.Redis.Prefix, cfg.Cache.TTL)
		if err != nil {
			return err
		}
		defer func() { _ = redis.Close() }()
		store = redis
	}

	var localizer *localization.Localizer
	if cfg.Localization.Path != "" {
		if localizer, err = localization.Load(cfg.Localization.Path); err != nil {
			return err
		}
	}

	passwords, err := bulk.NewPasswordGenerator()
	if err != nil {
		return err
	}

	e := cfg.Endpoints
	downstream := client.New(cfg.Hosts.Gateway,
		client.WithHTTPClient(&http.Client{Timeout: cfg.Hosts.Timeout}),
		client.WithLogger(log.WithField("component", "client")),
	)
	files := client.NewFileStoreClient(downstream, e.FileStoreURL, e.FileStoreUpload)
	boundaries := client.NewBoundaryClient(downstream, e.BoundaryRelationshipSearch, e.BoundaryHierarchySearch)
	projects := client.NewProjectClient(downstream, e)
	registry := resource.DefaultRegistry(e)
	if err := cfg.Pipeline.ApplyMatchStrategies(registry); err != nil {
		return err
	}
	reader := sheet.NewReader(files, localizer)

	jobs := pipeline.NewService(pipeline.Deps{
		Registry: registry,
		Reader:   reader,
		Files:    files,
		Schemas: schema.NewResolver(client.NewMDMSClient(downstream, e.MDMSSearch),
			schema.WithCache(store),
			schema.WithSchemaCode(cfg.Pipeline.SchemaCode),
			schema.WithLogger(log.WithField("component", "schema")),
		),
		Validator: validation.NewValidator(
			validation.NewBoundaryCodes(boundaries, store, log.WithField("component", "boundary")),
			validation.WithLogger(log.WithField("component", "validation")),
		),
		Users: validation.NewUserValidator(client.NewIndividualClient(downstream, e.IndividualSearch),
			cfg.Pipeline.UserCheckBatch, log.WithField("component", "users")),
		Creator: bulk.NewCreator(downstream,
			bulk.WithRetryPolicy(bulk.RetryPolicy{MaxAttempts: cfg.Pipeline.RetryAttempts, Delay: cfg.Pipeline.RetryDelay}),
			bulk.WithSettleDelay(cfg.Pipeline.SettleDelay),
			bulk.WithLogger(log.WithField("component", "bulk")),
		),
		Reconciler: reconcile.NewReconciler(downstream, log.WithField("component", "reconcile")),
		IDs:        client.NewIDGenClient(downstream, e.IDGenGenerate),
		Passwords:  passwords,
		Publisher:  publisher,
		Localizer:  localizer,
		Logger:     log.WithField("component", "pipeline"),
	})

	mappingLog := log.WithField("component", "mapping")
	mapper := mapping.NewService(
		mapping.NewPoller(resources, cfg.Pipeline.PollAttempts, cfg.Pipeline.PollInterval, mappingLog),
		mapping.NewProjectTree(projects, boundaries, mappingLog),
		projects, reader, registry, publisher, mappingLog,
	)

	handler := api.NewHandler(jobs, resources, mapper, log.WithField("component", "http"))
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      corsHandler.Handler(handler.Router()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("starting project factory")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	done := make(chan struct{})
	go func() {
		jobs.Wait()
		mapper.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("server exited")
	case <-shutdownCtx.Done():
		log.Warn("background jobs still running at shutdown")
	}
	return nil
}
