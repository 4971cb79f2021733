package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tvcompare/internal/ai"
	"tvcompare/internal/auth"
	"tvcompare/internal/catalog"
	"tvcompare/internal/cloud"
	"tvcompare/internal/localstore"
	synchub "tvcompare/internal/sync"
	"tvcompare/pkg/database"
	"tvcompare/pkg/logger"
	"tvcompare/pkg/utils"
)

func main() {
	log := logger.Must(utils.LoadLogConfig())
	defer func() { _ = log.Sync() }()

	srvCfg := utils.LoadServerConfig()
	gin.SetMode(srvCfg.GinMode)

	cfg := database.DefaultConfig()
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("open local store", zap.String("path", cfg.Path), zap.Error(err))
	}
	defer db.Close()

	local := localstore.New(db, log)
	remote := cloud.New(local, log, cloud.WithTimeout(srvCfg.RemoteTimeout()))
	if err := remote.Restore(context.Background()); err != nil {
		log.Warn("restore remote config", zap.Error(err))
	}

	hub := synchub.NewHub(log)
	svc := catalog.NewService(local, remote, hub, log)

	// Summaries are optional; without a key the route answers 503.
	var summarizer catalog.Summarizer
	aiCfg := utils.LoadAIConfig()
	gemini, err := ai.NewGeminiClient(context.Background(), aiCfg.APIKey, aiCfg.Model)
	switch {
	case errors.Is(err, ai.ErrUnavailable):
		log.Info("AI summaries disabled, GEMINI_API_KEY not set")
	case err != nil:
		log.Warn("AI summaries disabled", zap.Error(err))
	default:
		defer gemini.Close()
		summarizer = ai.NewSummarizer(gemini, aiCfg.Language, log)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/ws", synchub.WSHandler(hub))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "not_ready",
				"db_error": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"cloud":       remote.State(),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	catalogHandler := catalog.NewHandler(svc, summarizer, log)
	catalogHandler.RegisterRoutes(router.Group(""))

	authCfg := utils.LoadAuthConfig()
	tokenSvc := auth.TokenService{
		Secret:   []byte(authCfg.JWTSecret),
		Issuer:   authCfg.JWTIssuer,
		Duration: authCfg.JWTDuration,
	}
	authHandler := auth.NewHandler(auth.NewRepo(local, authCfg.AdminPassword), tokenSvc, log)
	authHandler.RegisterRoutes(router.Group("/auth"))

	admin := router.Group("/admin")
	admin.Use(authHandler.Middleware())
	catalogHandler.RegisterAdminRoutes(admin)

	httpSrv := &http.Server{
		Addr:              srvCfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	tcpSrv := synchub.NewServer(srvCfg.TCPAddr, hub, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("HTTP API listening", zap.String("addr", srvCfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(srvCfg.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	hub.Close()

	wg.Wait()
	remote.Close()
	log.Info("servers stopped")
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}
