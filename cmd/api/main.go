package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	_ "freightdesk/api/swagger" // swagger docs
	"freightdesk/internal/database"
	"freightdesk/internal/handler"
	"freightdesk/internal/middleware"
	"freightdesk/internal/repository"
	"freightdesk/internal/service"
	"freightdesk/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           FreightDesk API
// @version         1.0
// @description     Back office for maritime groupage: clients, cargo, container capacity and payment reconciliation.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Permission middleware needs DB access for role lookups
	middleware.InitPermissionMiddleware(db)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Engine operation deadline, overridable via ENGINE_OP_TIMEOUT_MS
	opTimeout := service.DefaultOperationTimeout
	if raw := os.Getenv("ENGINE_OP_TIMEOUT_MS"); raw != "" {
		if ms, parseErr := strconv.Atoi(raw); parseErr == nil && ms > 0 {
			opTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	cargoRepo := repository.NewCargoRepository(db)
	containerRepo := repository.NewContainerRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	userService := service.NewUserService(userRepo)
	roleService := service.NewRoleService(db)
	auditService := service.NewAuditService(db)
	reconciler := service.NewFinancialReconciler(cargoRepo, paymentRepo)
	clientService := service.NewClientService(clientRepo, auditRepo, txManager)
	cargoService := service.NewCargoService(cargoRepo, clientRepo, containerRepo, auditRepo, txManager, reconciler)
	containerService := service.NewContainerService(containerRepo, cargoRepo, auditRepo, txManager)
	paymentService := service.NewPaymentService(paymentRepo)
	reconciliationService := service.NewReconciliationService(
		cargoRepo, containerRepo, paymentRepo, clientRepo, auditRepo, txManager, reconciler, wsHub, opTimeout,
	)
	statisticsService := service.NewStatisticsService(statsRepo, clientRepo, containerRepo)

	// Seed default roles and permissions
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Printf("WARNING: Failed to seed roles and permissions: %v", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	auditHandler := handler.NewAuditHandler(auditService)
	clientHandler := handler.NewClientHandler(clientService)
	cargoHandler := handler.NewCargoHandler(cargoService)
	containerHandler := handler.NewContainerHandler(containerService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	reconciliationHandler := handler.NewReconciliationHandler(reconciliationService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	roleHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	clientHandler.RegisterRoutes(router.Group(""))
	cargoHandler.RegisterRoutes(router.Group(""))
	containerHandler.RegisterRoutes(router.Group(""))
	paymentHandler.RegisterRoutes(router.Group(""))
	reconciliationHandler.RegisterRoutes(router.Group(""))
	statisticsHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
