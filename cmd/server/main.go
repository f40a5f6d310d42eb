package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"atrium/internal/auth"
	"atrium/internal/authz"
	"atrium/internal/bus"
	"atrium/internal/config"
	"atrium/internal/handler"
	"atrium/internal/middleware"
	"atrium/internal/realtime"
	"atrium/internal/repository/postgres"
	"atrium/internal/service"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
	)

	// Create JWT verifier against the identity provider's JWKS
	verifier, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create token verifier: %v", err)
	}
	defer verifier.Close()

	// Create pgx connection pool
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Logger: logger,
	}
	userRepo := postgres.NewUserRepository(repoConfig)
	workspaceRepo := postgres.NewWorkspaceRepository(repoConfig)
	spaceRepo := postgres.NewSpaceRepository(repoConfig)
	memberRepo := postgres.NewMemberRepository(repoConfig)
	folderRepo := postgres.NewFolderRepository(repoConfig)
	inviteRepo := postgres.NewInviteRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Authorization engine
	resolver := authz.NewResolver(memberRepo, spaceRepo)
	guard := authz.NewGuard(resolver)
	engine := authz.NewEngine(guard, folderRepo, spaceRepo, logger)

	// Realtime hub, optionally bridged across instances over Redis
	hub := realtime.NewHub(logger)
	var broadcaster realtime.Broadcaster = hub
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		bridge := realtime.NewBridge(hub, rdb, logger)
		broadcaster = bridge
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("realtime bridge stopped", "error", err)
			}
		}()
		logger.Info("realtime bridge enabled", "redis_addr", cfg.RedisAddr)
	}

	// Event bus: provisioning consumer + invitation notifications
	var eventBus *bus.Bus
	if cfg.NATSURL != "" {
		eventBus, err = bus.Connect(cfg.NATSURL, logger)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer eventBus.Close()
	}

	// Create services
	workspaceService := service.NewWorkspaceService(workspaceRepo, memberRepo, userRepo, txManager, engine, broadcaster, logger)
	spaceService := service.NewSpaceService(spaceRepo, memberRepo, workspaceRepo, txManager, engine, broadcaster, logger)
	folderService := service.NewFolderService(folderRepo, txManager, engine, broadcaster, logger)
	invitationService := service.NewInvitationService(inviteRepo, memberRepo, workspaceRepo, userRepo, txManager, engine, broadcaster, eventBus, logger)
	provisioningService := service.NewProvisioningService(userRepo, workspaceRepo, spaceRepo, memberRepo, inviteRepo, txManager, broadcaster, logger)

	if eventBus != nil {
		if _, err := eventBus.SubscribeUserVerified(provisioningService.HandleUserVerified); err != nil {
			log.Fatalf("Failed to subscribe to user.verified: %v", err)
		}
		logger.Info("provisioning consumer subscribed")
	}

	// Create handlers
	workspaceHandler := handler.NewWorkspaceHandler(workspaceService, logger)
	spaceHandler := handler.NewSpaceHandler(spaceService, logger)
	folderHandler := handler.NewFolderHandler(folderService, logger)
	invitationHandler := handler.NewInvitationHandler(invitationService, logger)
	shareHandler := handler.NewShareHandler(engine, logger)
	realtimeHandler := handler.NewRealtimeHandler(hub, engine, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Workspace routes
	mux.HandleFunc("GET /api/workspaces", workspaceHandler.ListWorkspaces)
	mux.HandleFunc("POST /api/workspaces", workspaceHandler.CreateWorkspace)
	mux.HandleFunc("GET /api/workspaces/{id}", workspaceHandler.GetWorkspace)
	mux.HandleFunc("PATCH /api/workspaces/{id}", workspaceHandler.UpdateWorkspace)
	mux.HandleFunc("DELETE /api/workspaces/{id}", workspaceHandler.DeleteWorkspace)
	mux.HandleFunc("PUT /api/workspaces/{id}/select", workspaceHandler.SelectWorkspace)

	// Member routes
	mux.HandleFunc("GET /api/workspaces/{id}/members", workspaceHandler.ListMembers)
	mux.HandleFunc("GET /api/workspaces/{id}/members/search", workspaceHandler.SearchMembers)
	mux.HandleFunc("PATCH /api/workspaces/{id}/members/{memberID}", workspaceHandler.UpdateMemberRole)
	mux.HandleFunc("DELETE /api/workspaces/{id}/members/{memberID}", workspaceHandler.RemoveMember)

	// Space routes
	mux.HandleFunc("POST /api/spaces", spaceHandler.CreateSpace)
	mux.HandleFunc("GET /api/spaces/{id}", spaceHandler.GetSpace)
	mux.HandleFunc("GET /api/workspaces/{id}/spaces", spaceHandler.ListSpaces)
	mux.HandleFunc("PATCH /api/spaces/{id}", spaceHandler.RenameSpace)
	mux.HandleFunc("DELETE /api/spaces/{id}", spaceHandler.DeleteSpace)
	mux.HandleFunc("GET /api/spaces/{id}/members", spaceHandler.ListSpaceMembers)
	mux.HandleFunc("POST /api/spaces/{id}/members", spaceHandler.AddMembers)
	mux.HandleFunc("DELETE /api/spaces/{id}/members/{memberID}", spaceHandler.RemoveMember)

	// Folder routes
	mux.HandleFunc("POST /api/folders", folderHandler.CreateFolder)
	mux.HandleFunc("GET /api/folders", folderHandler.ListChildren)
	mux.HandleFunc("GET /api/folders/{id}", folderHandler.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", folderHandler.RenameFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folderHandler.DeleteFolder)
	mux.HandleFunc("POST /api/folders/{id}/move", folderHandler.MoveFolder)
	mux.HandleFunc("GET /api/folders/{id}/ancestors", folderHandler.GetAncestors)
	mux.HandleFunc("GET /api/workspaces/{id}/folders/search", folderHandler.SearchFolders)

	// Invitation routes
	mux.HandleFunc("POST /api/invites", invitationHandler.SendInvite)
	mux.HandleFunc("GET /api/invites", invitationHandler.ListMyInvites)
	mux.HandleFunc("POST /api/invites/{id}/accept", invitationHandler.AcceptInvite)
	mux.HandleFunc("POST /api/invites/{id}/decline", invitationHandler.DeclineInvite)

	// Share authorization
	mux.HandleFunc("POST /api/share/authorize", shareHandler.AuthorizeShare)

	// Realtime routes
	mux.HandleFunc("GET /api/realtime/stream", realtimeHandler.Stream)
	mux.HandleFunc("PUT /api/realtime/connections/{id}/view", realtimeHandler.SwitchView)

	// Build middleware chain
	var httpHandler http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	httpHandler = middleware.Auth(verifier, logger)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	// Start server
	logger.Info("listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
