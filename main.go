package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetdesk/backend/api"
	"fleetdesk/backend/configuration"
	"fleetdesk/backend/database"
	"fleetdesk/backend/dispatch"
	"fleetdesk/backend/geocode"
	"fleetdesk/backend/logging"
	"fleetdesk/backend/middleware"
	"fleetdesk/backend/migrations"
	"fleetdesk/backend/models"
	"fleetdesk/backend/querycache"
	"fleetdesk/backend/reportfn"
	"fleetdesk/backend/security"
	"fleetdesk/backend/services"
	"fleetdesk/backend/storage"
)

func main() {
	// Parse command line flags
	migrateOnly := flag.Bool("migrate-only", false, "Run database migrations and exit")
	flag.Parse()

	conf := configuration.Use()
	logging.SetDefault(conf.Logger())
	log := conf.Logger()

	if conf.IsProduction() {
		log.Info("Running in production environment")
	} else {
		log.Infof("Running in %s environment", conf.Environment)
	}

	// Use an encryption key from environment or a default one outside production
	encryptionKey := conf.EncryptionKey
	if encryptionKey == "" {
		log.Warn("ENCRYPTION_KEY not set, using a default key. This is NOT secure for production!")
		encryptionKey = "default-key-for-development-only"
	}
	if err := security.InitializeEncryption(encryptionKey); err != nil {
		log.WithError(err).Fatal("Failed to initialize encryption")
	}

	// Initialize database
	if err := database.InitDB(conf.Database); err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	err := database.RunMigrations(migrations.Options{
		Driver:         conf.Database.Driver,
		SeedDemoData:   conf.SeedDemoData,
		OrganizationID: conf.DevUser.OrganizationID,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}
	if *migrateOnly {
		log.Info("Migrations completed. Exiting.")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Firebase Admin SDK
	authClient, err := middleware.InitializeFirebase(ctx, conf.Firebase)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize Firebase")
	}
	var verifier middleware.TokenVerifier
	if authClient != nil {
		verifier = authClient
	} else {
		if conf.IsProduction() {
			log.Fatal("Firebase credentials are required in production")
		}
		ensureDevUser(ctx, conf.DevUser)
	}

	// Invalidations reach other instances through redis when it is configured.
	var broadcaster querycache.Broadcaster
	if conf.Redis.URL != "" {
		client, err := querycache.NewRedisClient(conf.Redis.URL)
		if err != nil {
			log.WithError(err).Fatal("Invalid REDIS_URL")
		}
		defer client.Close()
		broadcaster = querycache.NewRedisBroadcaster(client, conf.Redis.Channel)
		log.WithField("channel", conf.Redis.Channel).Info("Broadcasting cache invalidations through redis")
	}
	cache := querycache.New(broadcaster)
	go func() {
		if err := cache.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Cache invalidation listener stopped")
		}
	}()

	var store storage.ObjectStore
	if conf.Storage.Endpoint != "" {
		minioStore, err := storage.NewMinioStore(ctx, conf.Storage)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to object storage")
		}
		store = minioStore
	} else {
		log.Warn("STORAGE_ENDPOINT not set, keeping uploads in memory")
		store = storage.NewMemoryStore(conf.Storage.PublicBaseURL)
	}

	registry := dispatch.NewRegistry(services.JobRepository{}, cache, dispatch.Options{
		FeedSize:    conf.Dispatch.FeedSize,
		IdleTimeout: conf.Dispatch.IdleTimeout,
	})
	defer registry.CloseAll()
	go dispatch.NewPoller(registry, conf.Dispatch.PollInterval).Run(ctx)

	metricsPath := ""
	if conf.Metrics.Enabled {
		metricsPath = conf.Metrics.Path
	}
	server := api.NewServer(api.Dependencies{
		Logger:   log,
		Auth:     middleware.NewAuthenticator(verifier, services.UserDirectory{}, conf.DevUser),
		Registry: registry,
		Store:    store,
		Geocoder: geocode.New(conf.Geocoder),
		Renderer: reportfn.New(conf.Reports),
	}, api.Options{
		AllowedOrigins: conf.AllowedOrigins,
		Development:    !conf.IsProduction(),
		MetricsPath:    metricsPath,
		MaxUploadSize:  conf.Storage.MaxUploadSize,
		StaticDir:      conf.StaticDir,
	})

	// Configure the server
	srv := &http.Server{
		Handler:      server.Handler(),
		Addr:         conf.Address(),
		WriteTimeout: 90 * time.Second,
		ReadTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Graceful shutdown failed")
		}
	}()

	// Start the server
	log.Infof("Starting server on %s...", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("Server failed")
	}
	log.Info("Server stopped")
}

// ensureDevUser records the development identity so that presets and uploads
// made without Firebase have an owner in the datastore.
func ensureDevUser(ctx context.Context, dev configuration.DevUserOptions) {
	log := logging.Default()
	log.Warn("Auth token verification is disabled, every request runs as the development user")

	if err := services.EnsureOrganization(ctx, dev.OrganizationID, "Development"); err != nil {
		log.WithError(err).Warn("Failed to record development organization")
		return
	}
	err := services.UpsertUser(ctx, models.User{
		ID:             dev.ID,
		OrganizationID: dev.OrganizationID,
		Email:          dev.Email,
		DisplayName:    dev.DisplayName,
		Role:           dev.Role,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to record development user")
	}
}
