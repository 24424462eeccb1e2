package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/api"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/api/handler"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/api/middleware"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/cache"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/config"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/iot"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository/postgresql"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/service"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsgo_config "github.com/aws/aws-sdk-go-v2/config" // Alias để tránh trùng tên
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Cấu hình đã được tải.")

	// 2. Setup Database Connection
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Không thể kết nối database: %v", err)
	}
	defer db.Close()
	log.Println("Đã kết nối database thành công!")

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// 3. Khởi tạo AWS SDK Config
	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(rootCtx, awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Không thể tải AWS SDK config: %v", err)
	}
	log.Println("Đã tải AWS SDK config thành công cho region:", cfg.AWSRegion)

	// 4. Khởi tạo AWS Clients
	sqsClient := sqs.NewFromConfig(awsSDKCfg)
	iotDataPlaneClient := iotdataplane.NewFromConfig(awsSDKCfg, func(o *iotdataplane.Options) {
		if cfg.IoTMQTTEndpoint != "" {
			endpointWithSchema := cfg.IoTMQTTEndpoint
			if !strings.HasPrefix(endpointWithSchema, "https://") && !strings.HasPrefix(endpointWithSchema, "http://") {
				endpointWithSchema = "https://" + endpointWithSchema
			}
			o.BaseEndpoint = aws.String(endpointWithSchema)
		}
	})
	log.Println("Đã khởi tạo SQS client và IoT Data Plane client.")

	// 5. Initialize Repositories
	profileRepo := postgresql.NewPgProfileRepository(db)
	vehicleRepo := postgresql.NewPgVehicleRepository(db)
	spaceRepo := postgresql.NewPgParkingSpaceRepository(db)
	sessionRepo := postgresql.NewPgParkingSessionRepository(db)
	paymentRepo := postgresql.NewPgPaymentRepository(db)
	adminLogRepo := postgresql.NewPgAdminActivityRepository(db)
	userLogRepo := postgresql.NewPgUserActivityRepository(db)
	changeListener := postgresql.NewChangeListener(postgresql.DSN(cfg))

	redisClient := cache.NewRedisClient(cfg)
	if redisClient != nil {
		defer redisClient.Close()
	}
	revenueStore := cache.NewRevenueStore(redisClient)

	// 6. Initialize Services
	authService := service.NewAuthService(profileRepo, cfg.JWTSecret, cfg.JWTExpirationHours)
	if err := authService.EnsureAdmin(rootCtx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Printf("CẢNH BÁO: %v", err)
	}

	reconciler := service.NewReconciler(spaceRepo, sessionRepo, vehicleRepo, adminLogRepo, userLogRepo)
	if cfg.IoTMQTTEndpoint != "" {
		reconciler.SetIndicator(iot.NewOccupancyIndicator(iotDataPlaneClient))
	}
	parkingService := service.NewParkingService(spaceRepo, adminLogRepo, reconciler)
	scanService := service.NewScanService(reconciler)

	projector := service.NewActivityProjector(paymentRepo, userLogRepo, adminLogRepo,
		cfg.ActivityFetchCap, cfg.ProjectorWindow, cfg.ActivityTimeout)
	projector.SetProfiles(profileRepo)
	revenueService := service.NewRevenueService(paymentRepo, revenueStore, cfg.ReadTimeout, cfg.EarningsTimeout)

	webSocketManager := handler.NewWebSocketManager()
	syncController := service.NewSyncController(spaceRepo, projector, revenueService, changeListener, webSocketManager,
		service.SyncOptions{
			Debounce:     cfg.Debounce,
			PollInterval: cfg.PollInterval,
			ReadTimeout:  cfg.ReadTimeout,
		})
	webSocketManager.SetState(syncController)
	reconciler.SetRefresher(syncController)
	parkingService.SetRefresher(syncController)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		webSocketManager.Start(rootCtx)
	}()
	go func() {
		defer wg.Done()
		syncController.Run(rootCtx)
	}()
	log.Println("WebSocket Manager và SyncController đã được khởi động.")

	// 7. Khởi tạo và Chạy SQS Consumer
	if cfg.SQSScanQueueURL == "" {
		log.Println("CẢNH BÁO: SQS_SCAN_QUEUE_URL chưa được cấu hình. SQS Consumer sẽ không chạy.")
	} else {
		sqsConsumer := iot.NewSQSConsumer(sqsClient, cfg, scanService)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(rootCtx)
			log.Println("SQS Consumer đã dừng.")
		}()
	}

	// 8. Setup HTTP Router
	authMiddleware := middleware.NewAuthMiddleware(authService)
	router := api.SetupRouter(api.Handlers{
		Auth:       handler.NewAuthHandler(authService, syncController),
		Spaces:     handler.NewParkingSpaceHandler(parkingService),
		Scans:      handler.NewScanHandler(reconciler),
		Dashboard:  handler.NewDashboardHandler(syncController, cfg.Location()),
		WebSockets: handler.NewWebSocketHandler(webSocketManager),
	}, authMiddleware)

	// 9. Start HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server đang chạy trên port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Lỗi ListenAndServe(): %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Đang tắt server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server buộc phải tắt: %v", err)
	}
	cancelRoot()

	log.Println("Đang chờ các tiến trình nền dừng (tối đa 5 giây)...")
	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()
	select {
	case <-done:
		log.Println("Các tiến trình nền đã dừng hoàn toàn.")
	case <-time.After(5 * time.Second):
		log.Println("Các tiến trình nền không dừng trong thời gian chờ.")
	}

	log.Println("Server đã tắt.")
}
