package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"fitstake/internal/auth"
	"fitstake/internal/blockchain"
	"fitstake/internal/config"
	"fitstake/internal/database"
	"fitstake/internal/handlers"
	"fitstake/internal/jobs"
	"fitstake/internal/repository"
	"fitstake/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repository
	repo := repository.NewRepository(database.GetDB())

	// Initialize Solana client
	solanaClient := blockchain.NewSolanaClient(cfg.Solana.Network)

	// Initialize services
	authService := services.NewAuthService(repo)
	walletService := services.NewWalletService(repo)
	escrowService := services.NewEscrowService(repo, cfg.App.AdminWallet, cfg.App.PlatformFeePercent)
	challengeService := services.NewChallengeService(repo, escrowService, cfg.App.VerificationMargin)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	challengeHandler := handlers.NewChallengeHandler(challengeService, solanaClient, cfg.Solana.VerifyDepositTxns)
	escrowHandler := handlers.NewEscrowHandler(escrowService, walletService, authService)

	// Start settlement job if enabled
	var settlementJob *jobs.SettlementJob
	if cfg.App.SettlementEnabled {
		settlementJob = jobs.NewSettlementJob(challengeService, repo, cfg.App.SettlementInterval)
		go settlementJob.Start()
		log.Println("Settlement job started")
	}

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
		authRoutes.POST("/logout", authHandler.Logout)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public challenge routes
	router.GET("/api/challenges", challengeHandler.ListChallenges)
	router.GET("/api/challenges/:id", challengeHandler.GetChallenge)
	router.GET("/api/challenges/:id/participants", challengeHandler.GetParticipants)
	router.GET("/api/challenges/:id/submissions", challengeHandler.GetSubmissions)
	router.GET("/api/challenges/:id/submissions/:participantId/votes", challengeHandler.GetSubmissionVotes)

	// Public escrow queries
	router.GET("/api/escrow/challenges/:id/balance", escrowHandler.GetChallengeBalance)
	router.GET("/api/escrow/challenges/:id/transactions", escrowHandler.GetChallengeTransactions)
	router.GET("/api/escrow/fees", escrowHandler.GetPlatformFees)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		// Challenge endpoints
		api.POST("/challenges", challengeHandler.CreateChallenge)
		api.POST("/challenges/:id/join", challengeHandler.JoinChallenge)
		api.POST("/challenges/:id/submissions", challengeHandler.SubmitProof)
		api.POST("/challenges/:id/votes", challengeHandler.Vote)
		api.POST("/challenges/:id/distribute", challengeHandler.DistributeRewards)
		api.POST("/challenges/:id/cancel", challengeHandler.CancelChallenge)

		// Wallet endpoints
		api.GET("/wallet", escrowHandler.GetWallet)
		api.POST("/wallet/fund", escrowHandler.FundWallet)

		// Platform fee withdrawal (admin identity enforced by the service)
		api.POST("/escrow/fees/withdraw", escrowHandler.WithdrawPlatformFees)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	if settlementJob != nil {
		settlementJob.Stop()
	}

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
