package main

import (
	"strconv"
	"time"

	"scamdrill/config"
	"scamdrill/db"
	"scamdrill/internal/logging"
	"scamdrill/middlewares"
	"scamdrill/routes"
	"scamdrill/services"
	"scamdrill/utils"
	"scamdrill/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig("./config/config.yml")
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logging.Init(cfg.Logging.Dir)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	if err := db.ConnectMongoDB(cfg.Database.URI); err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	log.Info("Connected to MongoDB")

	utils.SeedScenarioData(log)

	if err := services.InitFeedbackService(cfg.Gemini.ApiKey); err != nil {
		log.Warn("Feedback service disabled", zap.Error(err))
	}

	router := setupRouter(cfg, log)
	port := strconv.Itoa(cfg.Server.Port)
	log.Info("Server listening", zap.String("port", port))

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

func setupRouter(cfg *config.Config, log *zap.Logger) *gin.Engine {
	router := gin.Default()

	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	tokens := utils.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hub := websocket.NewHub(cfg, log)

	auth := router.Group("/")
	auth.Use(middlewares.AuthMiddleware(tokens))
	{
		auth.GET("/scenario/:name", routes.GetScenarioRouteHandler(cfg))
		auth.PUT("/scenario/:name", middlewares.OperatorOnly(), routes.PutScenarioRouteHandler)
		auth.GET("/reports/:id", routes.GetReportRouteHandler)

		// Participant session socket
		auth.GET("/ws/session", hub.SessionHandler)
	}

	return router
}
