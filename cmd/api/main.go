package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"agrovet-pos/internal/cache"
	"agrovet-pos/internal/config"
	"agrovet-pos/internal/connectivity"
	"agrovet-pos/internal/handler"
	"agrovet-pos/internal/remote"
	"agrovet-pos/internal/router"
	"agrovet-pos/internal/service"
	"agrovet-pos/internal/store"
	"agrovet-pos/internal/syncer"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Agrovet POS...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Local offline store
	localStore, err := store.OpenSQLite(cfg.LocalDB.Path)
	if err != nil {
		log.Fatalf("Failed to open offline store: %v", err)
	}
	defer localStore.Close()
	log.Printf("Offline store ready at %s", cfg.LocalDB.Path)

	// Remote store based on config
	var remoteStore remote.Store
	switch cfg.RemoteDB.Type {
	case "mysql":
		remoteStore, err = remote.NewMySQL(cfg.RemoteDB.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL remote store: %v", err)
		}
		log.Println("MySQL remote store initialized")
	default: // postgres
		remoteStore, err = remote.NewPostgres(cfg.RemoteDB.PostgresDSN())
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL remote store: %v", err)
		}
		log.Println("PostgreSQL remote store initialized")
	}
	defer remoteStore.Close()

	// Connectivity monitor seeded with the current reachability state.
	// The manual override is only honored outside production.
	initialOnline := connectivity.ProbeOnce(remoteStore)
	monitor := connectivity.NewMonitor(initialOnline, cfg.App.IsDevelopment())
	log.Printf("Connectivity: online=%v", initialOnline)

	prober := connectivity.NewProber(monitor, remoteStore, cfg.Sync.ProbeInterval)
	prober.Start()
	defer prober.Stop()

	// Read cache: Redis when configured, in-memory otherwise. A Redis
	// that is down at boot degrades to memory rather than failing.
	var readCache cache.Cache
	if cfg.Cache.Type == "redis" {
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis cache unavailable, using memory cache: %v", err)
			readCache = cache.NewMemory()
		} else {
			log.Println("Redis cache initialized")
			readCache = redisCache
		}
	} else {
		readCache = cache.NewMemory()
	}
	defer readCache.Close()

	// Services
	offline := service.NewOffline(localStore, remoteStore, monitor, readCache)

	engine := syncer.NewEngine(localStore, remoteStore, monitor, syncer.Config{
		Interval:   cfg.Sync.EffectiveInterval(cfg.App.IsDevelopment()),
		MaxRetries: cfg.Sync.MaxRetries,
		RetryDelay: cfg.Sync.RetryDelay,
	})

	scheduler := syncer.NewScheduler(engine, monitor)
	scheduler.Start()

	// Handlers
	statusHandler := handler.NewStatusHandler(offline)
	salesHandler := handler.NewSalesHandler(offline)
	productsHandler := handler.NewProductsHandler(offline)
	customersHandler := handler.NewCustomersHandler(offline)
	syncHandler := handler.NewSyncHandler(engine, monitor, localStore)

	// Create router
	r := router.New(router.Config{
		StatusHandler:    statusHandler,
		SalesHandler:     salesHandler,
		ProductsHandler:  productsHandler,
		CustomersHandler: customersHandler,
		SyncHandler:      syncHandler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Stop the scheduler first so no sync pass starts mid-shutdown.
	scheduler.Stop()
	prober.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
