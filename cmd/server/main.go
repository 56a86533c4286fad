package main

import (
	"context"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpattn/datagov/internal/auth"
	"github.com/rpattn/datagov/internal/config"
	"github.com/rpattn/datagov/internal/db"
	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/guard"
	"github.com/rpattn/datagov/internal/ingestion"
	"github.com/rpattn/datagov/internal/middleware"
	"github.com/rpattn/datagov/internal/promotion"
	"github.com/rpattn/datagov/internal/repository"
	"github.com/rpattn/datagov/internal/schema"

	"github.com/google/uuid"
	"github.com/rs/cors"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Refuse to serve any route whose guard chain is incomplete.
	if err := guard.AssertFullCoverage(guard.ProductionRoutes()); err != nil {
		log.Fatalf("Guard coverage check failed: %v", err)
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(cfg.Database, cfg.Server.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	catalog := schema.BuiltinCatalog()
	if cfg.Schema.OverridesPath != "" {
		if err := catalog.ApplyOverrides(cfg.Schema.OverridesPath); err != nil {
			log.Fatalf("Failed to load schema overrides: %v", err)
		}
	}

	// Create repositories
	logRepo := repository.NewIngestionLogRepository(conn.Pool)
	snapshotRepo := repository.NewSnapshotRepository(conn.Pool)
	killSwitchRepo := repository.NewKillSwitchRepository(conn.Pool)
	injectionRepo := repository.NewFailureInjectionRepository(conn.Pool)
	auditRepo := repository.NewAuditLogRepository(conn.Pool)
	membershipRepo := repository.NewMembershipRepository(conn.Pool)

	// Assemble the guard chain
	auditLogger := guard.NewAuditLogger(auditRepo)
	killSwitch := guard.NewKillSwitch(killSwitchRepo, auditLogger, cfg.Guards.CacheTTL)
	injector := guard.NewInjector(injectionRepo, auditLogger, rand.New(rand.NewSource(time.Now().UnixNano())))
	resolver, err := buildResolver(cfg.Auth, membershipRepo)
	if err != nil {
		log.Fatalf("Failed to build actor resolver: %v", err)
	}
	chain := guard.NewChain(resolver, killSwitch, injector, auditLogger)

	// Create services and handlers
	ingestSvc := ingestion.NewService(logRepo, catalog)
	promoter := promotion.NewPromoter(logRepo)
	snapshots := promotion.NewSnapshotManager(snapshotRepo)
	admin := guard.NewAdmin(killSwitchRepo, injectionRepo, auditLogger)

	ingestHandler := ingestion.NewHandler(chain, ingestSvc)
	promoHandler := promotion.NewHandler(chain, promoter, snapshots)
	adminHandler := guard.NewAdminHandler(chain, admin)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/ingestions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			ingestHandler.HandleList(w, r)
			return
		}
		ingestHandler.HandleUpload(w, r)
	})
	mux.HandleFunc("/api/promotions", promoHandler.HandlePromote)
	mux.HandleFunc("/api/rollbacks", promoHandler.HandleRollback)
	mux.HandleFunc("/api/snapshots/active", promoHandler.HandleActive)
	mux.HandleFunc("/api/snapshots/history", promoHandler.HandleHistory)
	mux.HandleFunc("/api/admin/killswitch", adminHandler.HandleKillSwitch)
	mux.HandleFunc("/api/admin/chaos", adminHandler.HandleChaos)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	handler := corsHandler.Handler(middleware.LoggingMiddleware(auth.Middleware(mux)))

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting governance API on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func buildResolver(authCfg config.AuthConfig, memberships repository.MembershipRepository) (guard.ActorResolver, error) {
	if authCfg.Mode == config.AuthModeReal {
		return guard.NewActorResolver(memberships), nil
	}

	log.Println("WARNING: auth mode is dev_fallback, all requests resolve to the configured local actor")

	userID, err := uuid.Parse(authCfg.FallbackUserID)
	if err != nil {
		return nil, err
	}
	workspaceID, err := uuid.Parse(authCfg.FallbackWorkspaceID)
	if err != nil {
		return nil, err
	}
	role := domain.Role(authCfg.FallbackRole)
	if !role.Valid() {
		return nil, &domain.InvalidRoleError{Role: authCfg.FallbackRole}
	}

	return guard.NewDevFallbackResolver(domain.Actor{
		ID:          userID,
		Role:        role,
		WorkspaceID: workspaceID,
	}), nil
}
