// callme-dispatch queues phone-call notification tasks for an on-call agent.
//
// Allow-listed submitters enqueue tasks over HTTP, a single consumer claims
// them in FIFO order and marks them done, and a background sweeper returns
// tasks whose lease expired to the queue.
package main

import (
	"context"
	"log"
	"os"

	"github.com/example/callme-dispatch/middleware/throttle"
	"github.com/example/callme-dispatch/modules/api"
	"github.com/example/callme-dispatch/modules/audit"
	"github.com/example/callme-dispatch/modules/sweeper"
	"github.com/example/callme-dispatch/modules/task"
	"github.com/example/callme-dispatch/modules/whitelist"
	"github.com/example/callme-dispatch/storage"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	log.Println("=== callme-dispatch - On-call Phone Notification Queue ===")

	cfg := loadConfig()

	logLevel := mono.LogLevelInfo
	if cfg.errorsOnly() {
		logLevel = mono.LogLevelError
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	ctx := context.Background()

	backend, err := storage.Open(ctx, storage.Config{
		Driver: cfg.StoreDriver,
		Path:   cfg.DBPath,
		URL:    cfg.DatabaseURL,
		Debug:  cfg.DBDebug,
	})
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}

	var limiter *throttle.Limiter
	if cfg.RedisAddr != "" {
		limiter, err = throttle.New(ctx, throttle.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Limit:    cfg.ThrottleLimit,
			Window:   cfg.ThrottleWindow,
		})
		if err != nil {
			log.Fatalf("Failed to create throttle: %v", err)
		}
	}

	// Order: independent modules first, then modules with dependencies
	app.Register(whitelist.NewModule(backend.Members, cfg.WhitelistUsers, logger)) // Membership oracle
	app.Register(audit.NewModule(audit.DefaultCapacity, logger))                   // Event consumer
	app.Register(task.NewModule(backend.Tasks, backend, cfg.RateLimitWindow, logger))
	app.Register(sweeper.NewModule(backend.Tasks, sweeper.Config{
		Interval:     cfg.SweepInterval,
		LeaseTimeout: cfg.LeaseTimeout,
		Concurrency:  cfg.SweepConcurrency,
	}, logger))
	app.Register(api.NewModule(cfg.HTTPPort, limiter, logger)) // Driving adapter (depends on task, sweeper)

	// Start application
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg, backend.Driver(), limiter != nil)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				if err := app.Stop(ctx); err != nil {
					return err
				}
				if limiter != nil {
					if err := limiter.Close(); err != nil {
						log.Printf("Warning: failed to close Redis client: %v", err)
					}
				}
				return backend.Close()
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg Config, driver string, throttled bool) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Configuration:")
	log.Printf("  Store: %s", driver)
	log.Printf("  Duplicate window: %s", cfg.RateLimitWindow)
	log.Printf("  Lease timeout: %s (sweep every %s)", cfg.LeaseTimeout, cfg.SweepInterval)
	log.Printf("  Allow-list seed: %d user(s)", len(cfg.WhitelistUsers))
	if throttled {
		log.Printf("  Enqueue throttle: %d req / %s per IP (Redis %s)", cfg.ThrottleLimit, cfg.ThrottleWindow, cfg.RedisAddr)
	} else {
		log.Println("  Enqueue throttle: disabled (REDIS_ADDR not set)")
	}
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%d):", cfg.HTTPPort)
	log.Println("  POST /api/v1/tasks/enqueue  - Enqueue a notification task")
	log.Println("  GET  /api/v1/tasks/claim    - Claim the oldest pending task")
	log.Println("  POST /api/v1/tasks/complete - Mark a task done")
	log.Println("  POST /addPhoneTask          - Legacy enqueue")
	log.Println("  GET  /getPhoneTask          - Legacy claim")
	log.Println("  POST /finishPhoneTask       - Legacy complete")
	log.Println("  GET  /health                - Health check")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
