package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"catererp/server/internal/api"
	"catererp/server/internal/config"
	"catererp/server/internal/database"
	"catererp/server/internal/models"
	"catererp/server/internal/services"
	"catererp/server/internal/utils"
)

func main() {
	// Загружаем переменные окружения из .env файла (если существует)
	// Игнорируем ошибку, если файл не найден (для production окружений)
	if err := godotenv.Load(); err != nil {
		log.Printf("ℹ️ .env файл не найден, используем переменные окружения системы")
	} else {
		log.Printf("✅ Переменные окружения загружены из .env файла")
	}

	// Загрузка конфигурации
	cfg := config.Load()

	// Логируем наличие DATABASE_URL (без пароля)
	if cfg.DatabaseURL != "" {
		safeURL := cfg.DatabaseURL
		if idx := strings.Index(safeURL, "@"); idx > 0 {
			if schemeIdx := strings.Index(safeURL, "://"); schemeIdx > 0 {
				safeURL = safeURL[:schemeIdx+3] + "***@" + safeURL[idx+1:]
			}
		}
		log.Printf("📋 DATABASE_URL установлен: %s", safeURL)
	} else {
		log.Printf("⚠️ DATABASE_URL не установлен, используется значение по умолчанию")
	}

	if cfg.KafkaBrokers != "" {
		log.Printf("📡 KAFKA_BROKERS установлен: %s", cfg.KafkaBrokers)
	} else {
		log.Printf("⚠️ KAFKA_BROKERS не установлен, доменные события отключены")
	}

	// Подключение к PostgreSQL
	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Printf("❌ PostgreSQL connection failed: %v", err)
		log.Printf("⚠️ Продолжаем без БД (ограниченная функциональность)")
		db = nil
	} else {
		defer database.ClosePostgres(db)

		// Выполняем миграции
		if err := models.AutoMigrate(db); err != nil {
			log.Printf("❌ Migration failed: %v", err)
			log.Printf("⚠️ Continuing with limited functionality")
		} else {
			log.Println("✅ Database migrations completed")
		}
	}

	// Подключение к Redis (с поддержкой Sentinel)
	redisClient, err := database.ConnectRedis(
		cfg.RedisURL,
		cfg.RedisSentinelAddrs,
		cfg.RedisMasterName,
	)
	var redisUtil *utils.RedisClient
	if err != nil {
		log.Printf("⚠️ Redis connection failed: %v (continuing without Redis)", err)
		redisClient = nil
		redisUtil = nil
	} else {
		redisUtil = utils.NewRedisClient(redisClient)
	}
	defer database.CloseRedis(redisClient)

	// Kafka producer для доменных событий (nil при пустых брокерах)
	eventPublisher := services.NewEventPublisher(
		cfg.KafkaBrokers,
		"catering-events",
		cfg.KafkaUsername,
		cfg.KafkaPassword,
		cfg.KafkaCACert,
	)
	if eventPublisher != nil {
		defer eventPublisher.Close()
	}

	// Инициализация сервиса каталога блюд (ядро системы)
	var dishTreeService *services.DishTreeService
	if db != nil {
		dishTreeService = services.NewDishTreeService(
			db,
			cfg.SearchPageSize,
			time.Duration(cfg.TreeReloadMin)*time.Minute,
		)
		if redisUtil != nil {
			dishTreeService.SetRedisUtil(redisUtil)
		}
		dishTreeService.SetEventPublisher(eventPublisher)
		// При инвалидации дерева уведомляем все подключенные рабочие места
		dishTreeService.SetInvalidateHook(func() {
			api.BroadcastCatalogUpdate("tree:invalidate", nil)
		})
		dishTreeService.StartAutoReload()
		defer dishTreeService.Stop()

		// Прогреваем кэш корней при старте
		if _, err := dishTreeService.GetRoots(); err != nil {
			log.Printf("⚠️ Не удалось загрузить корни каталога: %v", err)
		} else {
			log.Println("✅ Каталог блюд загружен (корневые категории)")
		}
	} else {
		log.Println("⚠️ Dish tree service not started: PostgreSQL not available")
	}

	// Инициализация сервисов закупок
	var supplierService *services.SupplierService
	var catalogService *services.CatalogService
	var purchaseRequestService *services.PurchaseRequestService
	var invoiceService *services.InvoiceService
	if db != nil {
		supplierService = services.NewSupplierService(db)
		catalogService = services.NewCatalogService(db)

		purchaseRequestService = services.NewPurchaseRequestService(db)
		purchaseRequestService.SetEventPublisher(eventPublisher)

		invoiceService = services.NewInvoiceService(db)
		invoiceService.SetEventPublisher(eventPublisher)

		log.Println("✅ Procurement services initialized")
	} else {
		log.Println("⚠️ Procurement services not started: PostgreSQL not available")
	}

	// Инициализация кадрового сервиса
	var employeeService *services.EmployeeService
	if db != nil {
		employeeService = services.NewEmployeeService(db)
		employeeService.SetEventPublisher(eventPublisher)
		// Фоновая проверка истекающих документов охраны труда
		employeeService.StartExpiryChecker(
			time.Duration(cfg.SafetyCheckMin)*time.Minute,
			30,
		)
		defer employeeService.Stop()
		log.Println("✅ Employee service initialized")
	} else {
		log.Println("⚠️ Employee service not started: PostgreSQL not available")
	}

	// Отключаем логи для бешеной скорости
	gin.SetMode(gin.ReleaseMode)

	// Создаем пустой движок без лишних прослоек
	r := gin.New()

	// Health check endpoint (должен быть до CORS для хостинга)
	r.GET("/api/v1/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "Catering ERP Server",
			"version": "1.0.0",
		})
	})

	// Логирование всех запросов
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		log.Printf("🌐 %s %s - Status: %d - Latency: %v", method, path, status, latency)
	})

	// CORS для фронтенда
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Запускаем WebSocket Hub для рабочих мест каталога
	go api.CatalogHub.Run()
	log.Println("🌲 WebSocket Hub запущен для клиентов каталога")

	// API routes
	apiGroup := r.Group("/api/v1")

	// Авторизация
	var authController *api.AuthController
	if db != nil {
		authController = api.NewAuthController(db, cfg.JWTSecret)
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/login", authController.Login)
		}
		log.Println("🔐 Auth endpoints enabled: /api/v1/auth/login")
	} else {
		log.Println("⚠️ Auth endpoints not enabled: PostgreSQL not available")
	}

	// Все остальные endpoints требуют авторизации
	authorized := apiGroup.Group("")
	authorized.Use(api.AuthMiddleware(cfg.JWTSecret))

	if authController != nil {
		authorized.GET("/auth/me", authController.Me)
		authorized.POST("/auth/register", api.RequireRole(), authController.Register) // Только Admin
	}

	// Каталог блюд
	if dishTreeService != nil {
		dishTreeController := api.NewDishTreeController(dishTreeService)
		explorerController := api.NewExplorerWSController(
			dishTreeService,
			time.Duration(cfg.SearchDebounceMs)*time.Millisecond,
		)

		treeGroup := authorized.Group("/catalog/tree")
		{
			treeGroup.GET("/roots", dishTreeController.GetRoots)
			treeGroup.GET("/leaf-count", dishTreeController.CountLeaves)
			treeGroup.GET("/search", dishTreeController.SearchNodes)
			treeGroup.GET("/:id", dishTreeController.GetNode)
			treeGroup.GET("/:id/children", dishTreeController.GetChildren)

			// Мутации каталога: только шеф-повар и админ
			treeGroup.POST("", api.RequireRole("Kitchen"), dishTreeController.CreateNode)
			treeGroup.PUT("/:id", api.RequireRole("Kitchen"), dishTreeController.UpdateNode)
			treeGroup.DELETE("/:id", api.RequireRole("Kitchen"), dishTreeController.DeleteNode)
		}

		// WebSocket-проводник каталога (токен проверяется при апгрейде)
		authorized.GET("/catalog/ws", explorerController.ServeExplorerWS)
		log.Println("🌲 Catalog endpoints enabled")
	}

	// Поставщики и их каталоги
	if supplierService != nil && catalogService != nil {
		supplierController := api.NewSupplierController(supplierService, catalogService)
		supplierGroup := authorized.Group("/suppliers")
		{
			supplierGroup.GET("", supplierController.GetSuppliers)
			supplierGroup.GET("/:id", supplierController.GetSupplier)
			supplierGroup.POST("", api.RequireRole("Purchasing"), supplierController.CreateSupplier)
			supplierGroup.PUT("/:id", api.RequireRole("Purchasing"), supplierController.UpdateSupplier)
			supplierGroup.POST("/:id/archive", api.RequireRole("Purchasing"), supplierController.ArchiveSupplier)
			supplierGroup.DELETE("/:id", api.RequireRole("Purchasing"), supplierController.DeleteSupplier)

			supplierGroup.GET("/:id/products", supplierController.GetProducts)
			supplierGroup.POST("/:id/products", api.RequireRole("Purchasing"), supplierController.CreateProduct)
			supplierGroup.PUT("/:id/products/:productId", api.RequireRole("Purchasing"), supplierController.UpdateProduct)
			supplierGroup.DELETE("/:id/products/:productId", api.RequireRole("Purchasing"), supplierController.DeleteProduct)

			// Импорт каталога из CSV/XLSX
			supplierGroup.POST("/:id/catalog/parse", api.RequireRole("Purchasing"), supplierController.ParseImportFile)
			supplierGroup.POST("/:id/catalog/validate", api.RequireRole("Purchasing"), supplierController.ValidateImport)
			supplierGroup.POST("/:id/catalog/import", api.RequireRole("Purchasing"), supplierController.ProcessImport)
		}
		log.Println("📋 Supplier endpoints enabled")
	}

	// Заявки на закупку
	if purchaseRequestService != nil {
		requestController := api.NewPurchaseRequestController(purchaseRequestService)
		requestGroup := authorized.Group("/purchase-requests")
		{
			requestGroup.GET("", requestController.GetPurchaseRequests)
			requestGroup.GET("/:id", requestController.GetPurchaseRequest)
			requestGroup.POST("", api.RequireRole("Purchasing", "Kitchen"), requestController.CreatePurchaseRequest)
			requestGroup.PUT("/:id", api.RequireRole("Purchasing", "Kitchen"), requestController.UpdatePurchaseRequest)
			requestGroup.POST("/:id/status", api.RequireRole("Purchasing"), requestController.UpdateStatus)
			requestGroup.DELETE("/:id", api.RequireRole("Purchasing", "Kitchen"), requestController.DeletePurchaseRequest)
		}
		log.Println("📋 Purchase request endpoints enabled")
	}

	// Накладные
	if invoiceService != nil {
		invoiceController := api.NewInvoiceController(invoiceService)
		invoiceGroup := authorized.Group("/invoices")
		{
			invoiceGroup.GET("", invoiceController.GetInvoices)
			invoiceGroup.GET("/:id", invoiceController.GetInvoice)
			invoiceGroup.POST("", api.RequireRole("Purchasing"), invoiceController.CreateInvoice)
			invoiceGroup.PUT("/:id", api.RequireRole("Purchasing"), invoiceController.UpdateInvoice)
			invoiceGroup.POST("/:id/complete", api.RequireRole("Purchasing"), invoiceController.CompleteInvoice)
			invoiceGroup.POST("/:id/cancel", api.RequireRole("Purchasing"), invoiceController.CancelInvoice)
			invoiceGroup.DELETE("/:id", api.RequireRole("Purchasing"), invoiceController.DeleteInvoice)
		}
		log.Println("📋 Invoice endpoints enabled")
	}

	// Кадры и охрана труда
	if employeeService != nil {
		employeeController := api.NewEmployeeController(employeeService)
		employeeGroup := authorized.Group("/employees")
		{
			employeeGroup.GET("", api.RequireRole("HR", "Auditor"), employeeController.GetEmployees)
			employeeGroup.GET("/documents/expiring", api.RequireRole("HR", "Auditor"), employeeController.GetExpiringDocuments)
			employeeGroup.GET("/:id", api.RequireRole("HR", "Auditor"), employeeController.GetEmployee)
			employeeGroup.POST("", api.RequireRole("HR"), employeeController.CreateEmployee)
			employeeGroup.PUT("/:id", api.RequireRole("HR"), employeeController.UpdateEmployee)
			employeeGroup.POST("/:id/status", api.RequireRole("HR"), employeeController.UpdateEmployeeStatus)
			employeeGroup.DELETE("/:id", api.RequireRole("HR"), employeeController.DeleteEmployee)

			employeeGroup.POST("/:id/documents", api.RequireRole("HR"), employeeController.AddSafetyDocument)
			employeeGroup.PUT("/:id/documents/:docId", api.RequireRole("HR"), employeeController.UpdateSafetyDocument)
			employeeGroup.DELETE("/:id/documents/:docId", api.RequireRole("HR"), employeeController.DeleteSafetyDocument)
		}
		log.Println("👥 Employee endpoints enabled")
	}

	// Запуск на порту из конфига
	port := cfg.ServerPort
	if port == "" {
		port = "8080"
	}

	log.Printf("🚀 Server starting on port %s", port)
	log.Printf("📡 API доступен на http://0.0.0.0:%s/api/v1", port)
	if err := r.Run("0.0.0.0:" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
