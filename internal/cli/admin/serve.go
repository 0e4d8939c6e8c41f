package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/stratumhq/stratum/internal/api/handlers"
	"github.com/stratumhq/stratum/internal/config"
	"github.com/stratumhq/stratum/internal/database"
	"github.com/stratumhq/stratum/internal/domain"
	"github.com/stratumhq/stratum/internal/jobs"
	"github.com/stratumhq/stratum/internal/openai"
	"github.com/stratumhq/stratum/internal/repository"
	"github.com/stratumhq/stratum/internal/server"
	"github.com/stratumhq/stratum/internal/service"
	"github.com/stratumhq/stratum/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the stratum API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	entryRepo := repository.NewEntryRepository(pool)
	scopeRepo := repository.NewScopeRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	searchRepo := repository.NewSearchRepository(pool)
	versionRepo := repository.NewVersionRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(apiKeyRepo, uuidGen)

	if cfg.InitOrgName != "" {
		if err := bootstrapInitialScope(ctx, cfg, scopeRepo, authSvc); err != nil {
			return fmt.Errorf("failed to bootstrap initial scope: %w", err)
		}
	}

	var embeddingClient service.EmbeddingClient
	var embeddingWorker *jobs.Worker
	if cfg.HasOpenAI() {
		client := openai.NewClient(cfg.OpenAIAPIKey)
		embeddingClient = client
		embeddingSvc := service.NewEmbeddingService(client, entryRepo)
		embeddingProcessor := jobs.NewEmbeddingWorker(embeddingJobRepo, embeddingSvc)
		embeddingWorker = jobs.NewWorker(embeddingProcessor, cfg.EmbeddingWorkerInterval)
		go embeddingWorker.Start(ctx)
		log.Println("embedding worker started")
	}

	querySvc := service.NewQueryService(scopeRepo, entryRepo, searchRepo, searchRepo, searchRepo, versionRepo, embeddingClient)
	entrySvc := service.NewEntryServiceWithTx(entryRepo, embeddingJobRepo, txRunner)
	scopeSvc := service.NewScopeService(scopeRepo)

	routerCfg := server.RouterConfig{
		AuthValidator: authSvc,
		QueryHandler:  handlers.NewQueryHandler(querySvc),
		EntryHandler:  handlers.NewEntryHandler(entrySvc, querySvc),
		ScopeHandler:  handlers.NewScopeHandler(scopeSvc),
		AuthHandler:   handlers.NewAuthHandler(authSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if embeddingWorker != nil {
		embeddingWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// bootstrapInitialScope creates an org scope named by STRATUM_INIT_ORG_NAME
// and, optionally, an API key from STRATUM_INIT_API_KEY. Both steps are
// idempotent so the server can restart with the same environment.
func bootstrapInitialScope(ctx context.Context, cfg *config.Config, scopeRepo *repository.ScopeRepository, authSvc *service.AuthService) error {
	orgs, err := scopeRepo.ListByType(ctx, domain.ScopeTypeOrg)
	if err != nil {
		return fmt.Errorf("failed to list org scopes: %w", err)
	}

	var org *domain.Scope
	for _, s := range orgs {
		if s.Name == cfg.InitOrgName {
			org = s
			break
		}
	}

	if org == nil {
		scopeSvc := service.NewScopeService(scopeRepo)
		org, err = scopeSvc.CreateScope(ctx, service.CreateScopeInput{
			Type: domain.ScopeTypeOrg,
			Name: cfg.InitOrgName,
		})
		if err != nil {
			return fmt.Errorf("failed to create org scope: %w", err)
		}
		log.Printf("bootstrap: created org scope '%s' (id: %s)", org.Name, org.ID)
	} else {
		log.Printf("bootstrap: org scope '%s' already exists (id: %s)", org.Name, org.ID)
	}

	if cfg.InitAPIKey != "" {
		if !service.IsValidAPIToken(cfg.InitAPIKey) {
			return fmt.Errorf("invalid STRATUM_INIT_API_KEY format (expected 'stm_<64 hex chars>')")
		}

		existingKey, err := authSvc.GetAPIKeyByToken(ctx, cfg.InitAPIKey)
		if err == nil && existingKey != nil {
			log.Printf("bootstrap: API key already exists (id: %s)", existingKey.ID)
			return nil
		}

		if err := authSvc.CreateAPIKeyWithToken(ctx, "bootstrap", cfg.InitAPIKey); err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
		log.Printf("bootstrap: created API key")
	}

	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
