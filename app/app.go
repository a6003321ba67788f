// Package app wires the forward-factor pipeline together: database,
// cache, queues, the tiered scheduler, the scan worker pool, the
// notification router and callback listener, and the health/metrics/
// query API. Start() brings each component up in dependency order and
// gracefulShutdown() drains them before the connections they use close.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ashwnn/forward-factor/api"
	"github.com/ashwnn/forward-factor/cache"
	"github.com/ashwnn/forward-factor/config"
	"github.com/ashwnn/forward-factor/domain"
	"github.com/ashwnn/forward-factor/messenger"
	"github.com/ashwnn/forward-factor/notifications"
	"github.com/ashwnn/forward-factor/provider"
	"github.com/ashwnn/forward-factor/queue"
	"github.com/ashwnn/forward-factor/scheduler"
	"github.com/ashwnn/forward-factor/stability"
	"github.com/ashwnn/forward-factor/store"
	"github.com/ashwnn/forward-factor/tiering"
	"github.com/ashwnn/forward-factor/worker"
)

// App represents the main application
type App struct {
	config *config.Config

	db    *store.DB
	redis *cache.RedisClient

	tickers       *store.TickerRepository
	subscriptions *store.SubscriptionRepository
	policies      *store.PolicyRepository
	signals       *store.SignalRepository

	scanQueue   *queue.ScanQueue
	notifyQueue *queue.NotificationQueueClient
	chainCache  *cache.ChainSnapshotCache

	chainProvider provider.ChainProvider
	msgr          *messenger.WSMessenger
	tracker       *stability.Tracker

	scheduler  *scheduler.Scheduler
	pool       *worker.Pool
	router     *notifications.Router
	callbacks  *notifications.CallbackListener
	recomputer *tiering.Recomputer
	apiServer  *api.Server
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	return &App{config: cfg}
}

// Start connects to the durable stores, wires the pipeline, and blocks
// until a shutdown signal is received.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Database Connection
	fmt.Println("🗄️  Connecting to database...")
	dsn := fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		a.config.DatabaseHost, a.config.DatabasePort, a.config.DatabaseName, a.config.DatabaseUser, a.config.DatabasePassword)
	db, err := store.Connect(dsn)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	a.db = db
	if err := a.db.AutoMigrate(); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}

	// 2. Redis Connection
	fmt.Println("🧠 Connecting to Redis...")
	redisClient := cache.NewRedisClient(a.config.RedisHost, a.config.RedisPort, a.config.RedisPassword)
	if redisClient == nil {
		return fmt.Errorf("redis connection failed")
	}
	a.redis = redisClient

	// 3. Repositories, queues, cache
	a.tickers = store.NewTickerRepository(a.db)
	a.subscriptions = store.NewSubscriptionRepository(a.db)
	a.policies = store.NewPolicyRepository(a.db)
	a.signals = store.NewSignalRepository(a.db)

	a.scanQueue = queue.NewScanQueue(a.redis)
	a.notifyQueue = queue.NewNotificationQueue(a.redis)
	a.chainCache = cache.NewChainSnapshotCache(a.redis)
	a.tracker = stability.NewTracker(a.redis.Raw())

	// 4. External collaborators
	a.chainProvider = provider.NewHTTPChainProvider(
		a.config.ProviderBaseURL, a.config.ProviderAPIKey,
		a.config.ProviderRateLimitRPS, a.config.ProviderRateLimitBurst,
	)
	a.msgr = messenger.NewWSMessenger(a.config.MessengerToken)

	// 5. Scheduler
	fmt.Println("📅 Starting tiered scheduler...")
	cadences := scheduler.Cadences{High: a.config.Cadences.High, Medium: a.config.Cadences.Medium, Low: a.config.Cadences.Low}
	a.scheduler = scheduler.New(a.tickers, a.redis, a.scanQueue, cadences, a.config.MaxQueueDepth)

	// 6. Scan worker pool
	fmt.Println("⚙️  Starting scan worker pool...")
	a.pool = worker.New(
		a.scanQueue, a.chainProvider, a.chainCache,
		a.subscriptions, a.policies, a.tracker, a.signals, a.tickers, a.notifyQueue,
		a.config.WorkerCount,
	)

	// 7. Notification router + callback listener
	fmt.Println("📣 Starting notification router...")
	a.router = notifications.NewRouter(a.notifyQueue, a.signals, a.policies, a.msgr)
	a.callbacks = notifications.NewCallbackListener(a.msgr, a.signals)

	// 8. Tier recomputer (daily sweep + subscription-change hook)
	fmt.Println("📊 Starting tier recomputer...")
	a.recomputer = tiering.New(a.tickers, a.subscriptions, a.policies, a.chainProvider)

	// 9. API server (health, metrics, signal/subscription query)
	a.apiServer = api.NewServer(a.db, a.redis, a.pool, a.config.Cadences.Low, a.subscriptions, a.tickers, a.policies, a.signals, a.recomputer, a.defaultPolicy())

	var wg sync.WaitGroup
	wg.Add(5)
	go func() { defer wg.Done(); a.scheduler.Run(ctx) }()
	go func() { defer wg.Done(); a.pool.Run(ctx) }()
	go func() { defer wg.Done(); a.router.Run(ctx) }()
	go func() { defer wg.Done(); a.callbacks.Run(ctx) }()
	go func() { defer wg.Done(); a.recomputer.RunDaily(ctx) }()

	go func() {
		if err := a.apiServer.Start(a.config.APIListenAddr); err != nil {
			log.Printf("⚠️  API server failed: %v", err)
		}
	}()

	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /ws", a.msgr.Handler)
		log.Printf("🔌 Messenger websocket listening on %s", a.config.MessengerListenAddr)
		if err := http.ListenAndServe(a.config.MessengerListenAddr, mux); err != nil {
			log.Printf("⚠️  Messenger listener failed: %v", err)
		}
	}()

	// 10. Wait for interrupt, cancel the pipeline, and drain its goroutines
	// before releasing the durable connections they depend on.
	err = a.gracefulShutdown(cancel, &wg)
	return err
}

// defaultPolicy builds the UserPolicy template a first-time subscriber is
// seeded with, from the configured policy defaults.
func (a *App) defaultPolicy() domain.UserPolicy {
	d := a.config.PolicyDefaults
	pairsJSON, _ := domain.EncodeDTEPairs([]domain.DTEPair{{FrontTarget: 30, BackTarget: 60, FrontTol: 5, BackTol: 10}})
	return domain.UserPolicy{
		FFThreshold:     d.FFThreshold,
		DTEPairsJSON:    pairsJSON,
		VolPoint:        domain.VolPointATM,
		MaxBidAskPct:    d.MaxBidAskPct,
		StabilityScans:  d.StabilityScans,
		CooldownMinutes: d.CooldownMinutes,
		DeltaFFMin:      d.DeltaFFMin,
		Timezone:        d.Timezone,
		Active:          true,
	}
}

// gracefulShutdown waits for an interrupt/TERM signal, cancels ctx, and
// blocks (up to a timeout) for every pipeline goroutine in wg to drain
// before closing the database and Redis connections they use.
func (a *App) gracefulShutdown(cancel context.CancelFunc, wg *sync.WaitGroup) error {
	// Setup signal handling
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt signal
	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	// Cancel context to stop all goroutines (scheduler, pool, router, callbacks, tier recomputer)
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown tasks with timeout
	shutdownComplete := make(chan struct{})
	go func() {
		wg.Wait()

		// Close database connection
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				log.Printf("Error closing database: %v", err)
			} else {
				fmt.Println("✅ Database connection closed")
			}
		}

		// Close Redis connection
		if a.redis != nil {
			if err := a.redis.Close(); err != nil {
				log.Printf("Error closing redis: %v", err)
			} else {
				fmt.Println("✅ Redis connection closed")
			}
		}

		close(shutdownComplete)
	}()

	// Wait for shutdown to complete or timeout
	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
