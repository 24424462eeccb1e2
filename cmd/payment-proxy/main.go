package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/api"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/api/handler"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/config"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/payment"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/repository/postgresql"
)

func main() {
	cfg := config.Load()

	if cfg.PaymentSecretKey == "" {
		log.Fatal("PAYMENT_SECRET_KEY chưa được cấu hình")
	}
	if cfg.WebhookSecret == "" {
		log.Fatal("PAYMENT_WEBHOOK_SECRET chưa được cấu hình")
	}

	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Không thể kết nối database: %v", err)
	}
	defer db.Close()

	provider, err := payment.NewProvider(cfg)
	if err != nil {
		log.Fatalf("Không thể khởi tạo cổng thanh toán: %v", err)
	}
	paymentService := payment.NewService(provider, postgresql.NewPgPaymentRepository(db),
		cfg.WebhookSecret, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)

	router := api.SetupPaymentRouter(handler.NewPaymentHandler(paymentService))
	srv := &http.Server{
		Addr:    ":" + cfg.ProxyPort,
		Handler: router,
	}

	go func() {
		log.Printf("Payment proxy (%s) đang chạy trên port %s", provider.Name(), cfg.ProxyPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Lỗi ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Đang tắt payment proxy...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Payment proxy buộc phải tắt: %v", err)
	}
	log.Println("Payment proxy đã tắt.")
}
