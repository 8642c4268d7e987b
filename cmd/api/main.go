package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"dtbase_go_backend/cmd/api/config"
	"dtbase_go_backend/internal/api"
	"dtbase_go_backend/internal/database"
	"dtbase_go_backend/internal/services"
	"dtbase_go_backend/internal/utils/broker"
	"dtbase_go_backend/internal/wsocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET is not set in the environment")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "dtbase.db"
	}

	database.InitDB()

	cfg := config.NewConfig()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize internal services
	eventBroker := broker.NewBroker()
	modelStore := services.NewModelStoreDB(database.DB)
	modelService, err := services.NewModelService(modelStore, eventBroker, logger)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	importService := services.NewReferenceImportService(modelService, logger)
	quantifyService := services.NewQuantifyService(modelService, cfg.SampleSize)
	exportService := services.NewExportService(modelService, dbPath, logger)

	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173"
	}
	originList := strings.Split(allowedOrigins, ",")

	// CORS middleware configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     originList,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           cfg.CorsMaxAge,
	}))

	// WebSocket upgrader, held to the same origin list as CORS.
	upgrader := websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range originList {
				if strings.EqualFold(strings.TrimSpace(allowed), origin) {
					return true
				}
			}
			return false
		},
	}

	wsHandler := wsocket.NewHandler(eventBroker, upgrader, cfg.WsPingInterval, logger)

	api.SetupRoutes(r, modelService, importService, quantifyService, exportService)

	r.GET("/ws", func(c *gin.Context) {
		wsHandler.HandleWebSocket(c.Writer, c.Request)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
