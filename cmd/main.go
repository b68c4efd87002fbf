package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"

	"github.com/momentumblock/pcl-proxy/internal/handlers"
	"github.com/momentumblock/pcl-proxy/internal/models"
	"github.com/momentumblock/pcl-proxy/internal/queue"
	"github.com/momentumblock/pcl-proxy/internal/routing"
	"github.com/momentumblock/pcl-proxy/internal/services"
	"github.com/momentumblock/pcl-proxy/internal/workers"
)

const notificationsQueueSize = 256

func main() {
	cfg := getConfig()

	table, err := routing.NewTable(cfg)
	if err != nil {
		log.Fatal("invalid route table: ", err)
	}

	s := fiber.New(fiber.Config{Immutable: true})

	notifications := queue.NewNotificationsQueue(notificationsQueueSize)
	forwarder := services.NewForwarder(cfg.ForwardTimeout)
	checkoutService := services.NewCheckoutService(cfg)

	checkoutHandler := handlers.NewCheckoutHandler(cfg, checkoutService)
	forwardHandler := handlers.NewForwardHandler(table, forwarder)
	notifyHandler := handlers.NewNotifyHandler(cfg, notifications)
	smsHandler := handlers.NewSMSHandler(cfg, forwarder)

	s.Get("/health", handlers.HealthCheck)
	s.All("/checkout", checkoutHandler.Handle)
	s.All("/forward", forwardHandler.Handle)
	s.All("/notify-created", notifyHandler.Handle)
	s.Post("/webhooks/sms", smsHandler.Handle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	worker := workers.NewNotifyWorker(cfg, notifications)
	for i := 0; i < cfg.NumNotifyWorkers; i++ {
		g.Go(func() error { return worker.Run(ctx) })
	}

	g.Go(func() error {
		return s.Listen(":" + getEnv("PORT", "8080"))
	})
	g.Go(func() error {
		// Drain in-flight requests before closing the queue so a late
		// notify request cannot publish into a closed queue.
		<-ctx.Done()
		err := s.Shutdown()
		notifications.Close()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() *models.Config {
	numWorkers := 4
	if v := os.Getenv("NUM_NOTIFY_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Fatal("invalid NUM_NOTIFY_WORKERS value: ", v)
		}
		numWorkers = n
	}

	return &models.Config{
		StripeKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeAPIBase:  getEnv("STRIPE_API_BASE", "https://api.stripe.com"),
		SuccessURLBase: os.Getenv("SUCCESS_URL_BASE"),
		CancelURLBase:  os.Getenv("CANCEL_URL_BASE"),

		BookingURL:   os.Getenv("BOOKING_BACKEND_URL"),
		SecondaryURL: os.Getenv("SECONDARY_BACKEND_URL"),
		ManageURL:    os.Getenv("MANAGE_BACKEND_URL"),
		FallbackURL:  os.Getenv("FALLBACK_BACKEND_URL"),

		RelayURL:      os.Getenv("RELAY_URL"),
		RelaySecret:   os.Getenv("RELAY_SECRET"),
		SMSBackendURL: os.Getenv("SMS_BACKEND_URL"),

		NumNotifyWorkers: numWorkers,
		ForwardTimeout:   12 * time.Second,
		CheckoutTimeout:  15 * time.Second,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
