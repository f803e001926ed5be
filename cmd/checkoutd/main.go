package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_checkout/internal/cart"
	"github.com/fjod/go_checkout/internal/checkout"
	"github.com/fjod/go_checkout/internal/httpapi"
	"github.com/fjod/go_checkout/internal/journal"
	"github.com/fjod/go_checkout/internal/pricing"
	"github.com/fjod/go_checkout/internal/publisher"
	"github.com/fjod/go_checkout/internal/session"
	"github.com/fjod/go_checkout/internal/store"
	"github.com/fjod/go_checkout/internal/submission"
)

type Config struct {
	HTTPPort        string
	SubmissionURL   string
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    string
	PostgresHost    string
	PostgresPort    int
	PostgresUser    string
	PostgresPass    string
	PostgresDB      string
	MigrationsPath  string
	ShippingCost    decimal.Decimal
	TaxRate         decimal.Decimal
	Currency        string
	DiscountCodes   string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		SubmissionURL:   getEnv("SUBMISSION_URL", "http://localhost:8090"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		PostgresHost:    getEnv("POSTGRES_HOST", ""),
		PostgresPort:    getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:    getEnv("POSTGRES_USER", "postgres"),
		PostgresPass:    getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:      getEnv("POSTGRES_DB", "checkout"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "internal/journal/migrations"),
		ShippingCost:    getEnvDecimal("SHIPPING_COST", "5.00"),
		TaxRate:         getEnvDecimal("TAX_RATE", "0.0825"),
		Currency:        getEnv("CURRENCY", "USD"),
		DiscountCodes:   getEnv("DISCOUNT_CODES", ""),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	raw := getEnv(key, defaultValue)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		log.Fatalf("invalid decimal in %s: %v", key, err)
	}
	return d
}

// parseDiscounts reads "SAVE10=percentage:10,FIVEOFF=fixed:5" into a lookup.
func parseDiscounts(raw string) func(code string) *pricing.Discount {
	table := make(map[string]*pricing.Discount)
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		code, spec, ok := strings.Cut(entry, "=")
		if !ok {
			log.Printf("skipping malformed discount entry: %s \n", entry)
			continue
		}
		kind, amountStr, ok := strings.Cut(spec, ":")
		if !ok {
			log.Printf("skipping malformed discount entry: %s \n", entry)
			continue
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			log.Printf("skipping discount %s: %v \n", code, err)
			continue
		}
		table[code] = &pricing.Discount{
			Code:   code,
			Type:   pricing.DiscountType(kind),
			Amount: amount,
		}
	}
	if len(table) == 0 {
		return nil
	}
	return func(code string) *pricing.Discount {
		return table[code]
	}
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	// Draft store: redis when configured, otherwise in-memory
	var drafts store.DraftStore = store.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal("Redis connection failed:", err)
		}
		log.Printf("Redis ping succeeded")
		drafts = store.NewRedisStore(redisClient)
	}

	// Submission journal: postgres when configured, otherwise in-memory
	var jnl journal.Journal = journal.NewMemoryJournal()
	if cfg.PostgresHost != "" {
		cred := &journal.Credentials{
			Host:              cfg.PostgresHost,
			Port:              cfg.PostgresPort,
			User:              cfg.PostgresUser,
			Password:          cfg.PostgresPass,
			DBName:            cfg.PostgresDB,
			MigrationsDirPath: cfg.MigrationsPath,
		}
		pg, err := journal.NewPostgresJournal(cred)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		if err := pg.RunMigrations(cred); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Printf("Connected to postgres at %s", cfg.PostgresHost)
		jnl = pg
	}

	// Event publisher: kafka when configured
	var events checkout.EventPublisher
	var notifier cart.SavedItemNotifier
	if cfg.KafkaBrokers != "" {
		pub := publisher.NewKafkaPublisher(strings.Split(cfg.KafkaBrokers, ",")...)
		defer pub.Close()
		log.Printf("Kafka publisher wired to %s", cfg.KafkaBrokers)
		events = pub
		notifier = pub
	}

	port := submission.NewBreakerPort(submission.NewHTTPPort(cfg.SubmissionURL, cfg.RequestTimeout))

	manager := session.NewManager(session.Config{
		Drafts:         drafts,
		Journal:        jnl,
		Port:           port,
		Events:         events,
		Notifier:       notifier,
		ShippingCost:   cfg.ShippingCost,
		TaxRate:        cfg.TaxRate,
		Currency:       cfg.Currency,
		LookupDiscount: parseDiscounts(cfg.DiscountCodes),
	})

	handler := httpapi.NewCheckoutHandler(manager, cfg.RequestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/api/v1", handler.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "checkoutd"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("checkout service starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
