// api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"funnelscope/api/analytics"
	"funnelscope/api/database"
	"funnelscope/api/handlers"
	"funnelscope/api/middleware"
	"funnelscope/api/store"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Info("No .env file found")
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
		log.SetFormatter(&log.JSONFormatter{})
	}

	// --- Initialize PostgreSQL Database (funnel metadata) ---
	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize PostgreSQL database")
	}
	defer dbClient.Close()

	// --- Initialize ClickHouse Database (funnel event store) ---
	chClient, err := database.NewClickHouseDB()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize ClickHouse database")
	}
	defer chClient.Close()

	// --- Initialize Stores ---
	funnelStore := store.NewFunnelStore(dbClient.DB)
	analyticsStore := store.NewAnalyticsStore(chClient)

	// --- Initialize Engine & Handlers ---
	engine := analytics.NewEngine(analyticsStore)
	analyticsHandlers := handlers.NewAnalyticsHandlers(engine, analyticsStore, funnelStore)
	funnelHandlers := handlers.NewFunnelHandlers(funnelStore)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/track", analyticsHandlers.TrackEvent)

		analyticsGroup := api.Group("/analytics")
		{
			analyticsGroup.GET("/drilldown", analyticsHandlers.GetDrilldown)
			analyticsGroup.GET("/sessions", analyticsHandlers.GetSessions)
		}

		funnelGroup := api.Group("/funnels")
		{
			funnelGroup.GET("", funnelHandlers.ListFunnels)
			funnelGroup.POST("", funnelHandlers.CreateFunnel)
			funnelGroup.GET("/:id", funnelHandlers.GetFunnel)
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.WithField("port", port).Info("Funnel analytics API starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("API server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exiting.")
}
