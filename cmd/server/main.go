package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	adminhandler "github.com/hellokitty09/inharitance/internal/admin"
	"github.com/hellokitty09/inharitance/internal/audit"
	"github.com/hellokitty09/inharitance/internal/commitment"
	commitmenthandler "github.com/hellokitty09/inharitance/internal/commitment/handler"
	"github.com/hellokitty09/inharitance/internal/complaint"
	complainthandler "github.com/hellokitty09/inharitance/internal/complaint/handler"
	"github.com/hellokitty09/inharitance/internal/platform/config"
	"github.com/hellokitty09/inharitance/internal/platform/httpserver"
	"github.com/hellokitty09/inharitance/internal/platform/logger"
	"github.com/hellokitty09/inharitance/internal/platform/metrics"
	"github.com/hellokitty09/inharitance/internal/platform/middleware"
	platformredis "github.com/hellokitty09/inharitance/internal/platform/redis"
	"github.com/hellokitty09/inharitance/internal/ratelimit"
	"github.com/hellokitty09/inharitance/internal/realtime"
	httptransport "github.com/hellokitty09/inharitance/internal/transport/http"
	"github.com/hellokitty09/inharitance/internal/zkpgate"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages; everything here is assembly.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		db            *sql.DB
		complaintSink complaint.Store = complaint.NewInMemoryStore()
		auditSink     audit.Store     = audit.NewInMemoryStore()
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		complaintStore := complaint.NewPostgresStore(db)
		auditStore := audit.NewPostgresStore(db)
		if err := complaintStore.EnsureSchema(ctx); err != nil {
			log.Error("complaint schema migration failed", "error", err)
			os.Exit(1)
		}
		if err := auditStore.EnsureSchema(ctx); err != nil {
			log.Error("audit schema migration failed", "error", err)
			os.Exit(1)
		}
		complaintSink = complaintStore
		auditSink = auditStore
		log.Info("postgres storage enabled")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	redisClient, err := platformredis.New(ctx, cfg.RedisAddr)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis enabled", "addr", cfg.RedisAddr)
	}

	// Commitment tree over the configured region set, fixed for the process
	// lifetime.
	tree, err := commitment.Build(commitment.LeavesFromRegions(cfg.Regions))
	if err != nil {
		log.Error("commitment tree build failed", "error", err)
		os.Exit(1)
	}
	rootLog := tree.Root()
	log.Info("commitment tree built", "regions", len(cfg.Regions), "root", rootLog.String())

	// Proof gate: groth16 oracle when a verifying key is present.
	var verifier zkpgate.Verifier
	if cfg.VerificationKeyPath != "" {
		g16, err := zkpgate.NewGroth16VerifierFromFile(cfg.VerificationKeyPath)
		if err != nil {
			log.Error("load verifying key failed", "path", cfg.VerificationKeyPath, "error", err)
			os.Exit(1)
		}
		verifier = g16
		log.Info("groth16 verifier loaded", "path", cfg.VerificationKeyPath)
	} else {
		log.Warn("ZKP_VERIFICATION_KEY not set, submissions with proofs will be refused")
	}
	gate := zkpgate.New(verifier)

	ledger := complaint.NewLedger(complaintSink, log, complaint.WithEventBuffer(cfg.EventBuffer))

	// Audit pipeline.
	auditCh := make(chan audit.Event, cfg.EventBuffer)
	auditWorker := audit.NewWorker(auditSink, auditCh, log)
	auditTrail := audit.NewPublisher(auditSink)

	// Submission rate limiting: shared window in Redis when available.
	var limiter ratelimit.Limiter = ratelimit.NewInMemoryLimiter(ratelimit.Config{
		Limit:  cfg.SubmitRateLimit,
		Window: cfg.SubmitRateWindow,
	})
	if redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient.Client, ratelimit.Config{
			Limit:  cfg.SubmitRateLimit,
			Window: cfg.SubmitRateWindow,
		})
	}

	// Realtime feed. The hub is the broadcaster's publisher, and the
	// broadcaster supplies connect-time snapshots back to the hub.
	hub := realtime.NewHub(nil, log, m)
	broadcaster := realtime.NewBroadcaster(ledger, ledger.Events(), hub, log)
	hub.SetSnapshot(broadcaster.Snapshot)

	jwtValidator := middleware.NewHMACValidator(cfg.JWTSigningKey)

	router := httptransport.NewRouter(httptransport.Deps{
		Complaints:  complainthandler.New(ledger, gate, log, m, auditCh),
		Commitment:  commitmenthandler.New(tree, cfg.Regions, log),
		Admin:       adminhandler.New(ledger, broadcaster, auditTrail, auditCh, log),
		SubmitLimit: ratelimit.Middleware(limiter, log),
		AdminAuth:   middleware.RequireAdmin(jwtValidator, log),
		ServeWS:     hub.ServeWS,
		DB:          db,
		Redis:       redisClient,
		Middleware: []func(http.Handler) http.Handler{
			middleware.Recovery(log),
			middleware.Logger(log),
			middleware.Latency(m),
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return hub.Run(groupCtx) })
	group.Go(func() error { return broadcaster.Run(groupCtx) })
	group.Go(func() error { return auditWorker.Run(groupCtx) })
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
