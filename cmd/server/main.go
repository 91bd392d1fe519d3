// Command server runs the trust and enforcement service: the write gate and
// moderator admin API over HTTP, plus the stream workers that scan content,
// apply policy, and feed the quarantine queue.
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

	"golang.org/x/sync/errgroup"

	"vigil/internal/audit"
	"vigil/internal/enforce/hooks"
	enfmetrics "vigil/internal/enforce/metrics"
	enfservice "vigil/internal/enforce/service"
	enfstore "vigil/internal/enforce/store"
	gatemetrics "vigil/internal/gate/metrics"
	gateservice "vigil/internal/gate/service"
	"vigil/internal/pipeline"
	pipemetrics "vigil/internal/pipeline/metrics"
	"vigil/internal/platform/config"
	"vigil/internal/platform/httpserver"
	"vigil/internal/platform/logger"
	"vigil/internal/platform/postgres"
	platformredis "vigil/internal/platform/redis"
	"vigil/internal/policy"
	policymetrics "vigil/internal/policy/metrics"
	qmetrics "vigil/internal/quarantine/metrics"
	qservice "vigil/internal/quarantine/service"
	qstore "vigil/internal/quarantine/store"
	repservice "vigil/internal/reputation/service"
	repstore "vigil/internal/reputation/store"
	resservice "vigil/internal/restriction/service"
	resstore "vigil/internal/restriction/store"
	"vigil/internal/scan"
	scanmetrics "vigil/internal/scan/metrics"
	textscan "vigil/internal/scan/text"
	urlscan "vigil/internal/scan/url"
	"vigil/internal/stream"
	"vigil/internal/threshold"
	httptransport "vigil/internal/transport/http"
	velconfig "vigil/internal/velocity/config"
	velmetrics "vigil/internal/velocity/metrics"
	velservice "vigil/internal/velocity/service"
	velstore "vigil/internal/velocity/store"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
	purgeAfter      = 24 * time.Hour
	backlogInterval = time.Minute
	resolverTimeout = 5 * time.Second
)

// defaultTerms seeds the keyword detector. Deployments replace this with a
// model-backed detector; the categories line up with the baseline policy.
var defaultTerms = map[string][]string{
	"toxicity": {"kill yourself", "kys", "go die"},
	"spam":     {"free followers", "dm for promo", "limited offer", "act now"},
	"scam":     {"seed phrase", "wallet recovery", "double your crypto"},
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.PostgresURL != "" {
		var err error
		db, err = postgres.Open(cfg.PostgresURL)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("postgres migrate failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	transport, cursors, err := buildStream(ctx, cfg, rdb)
	if err != nil {
		log.Error("stream backend init failed", "backend", cfg.StreamBackend, "error", err)
		os.Exit(1)
	}
	defer transport.Close()

	pol, err := policy.LoadFile(cfg.PolicyPath)
	if err != nil {
		log.Error("policy load failed", "path", cfg.PolicyPath, "error", err)
		os.Exit(1)
	}
	engine := policy.NewEngine(
		policy.WithLogger(log),
		policy.WithMetrics(policymetrics.New()),
	)

	auditStore := buildAuditStore(db)
	auditInbox := make(chan audit.Entry, 256)
	auditor := audit.NewAsyncPublisher(auditStore, auditInbox)
	auditWorker := audit.NewWorker(auditStore, auditInbox, log)

	reputation, err := repservice.New(buildReputationStore(db), repservice.WithLogger(log))
	if err != nil {
		log.Error("reputation service init failed", "error", err)
		os.Exit(1)
	}

	velocity, err := velservice.New(buildCounterStore(rdb),
		velservice.WithConfig(velconfig.DefaultConfig()),
		velservice.WithLogger(log),
		velservice.WithMetrics(velmetrics.New()),
	)
	if err != nil {
		log.Error("velocity service init failed", "error", err)
		os.Exit(1)
	}

	restrictions, err := resservice.New(buildRestrictionStore(db), resservice.WithLogger(log))
	if err != nil {
		log.Error("restriction service init failed", "error", err)
		os.Exit(1)
	}

	gate, err := gateservice.New(reputation, velocity, restrictions,
		gateservice.WithLogger(log),
		gateservice.WithMetrics(gatemetrics.New()),
		gateservice.WithSensitiveSurfaces(cfg.SensitiveSurfaces),
	)
	if err != nil {
		log.Error("gate init failed", "error", err)
		os.Exit(1)
	}

	thresholds, err := threshold.New(threshold.WithLogger(log))
	if err != nil {
		log.Error("threshold init failed", "error", err)
		os.Exit(1)
	}

	scanStore := buildScanStore(db)
	scanMetrics := scanmetrics.New()

	textScanner, err := textscan.New(textscan.NewKeywordDetector(defaultTerms), thresholds, scanStore,
		textscan.WithLogger(log),
		textscan.WithMetrics(scanMetrics),
	)
	if err != nil {
		log.Error("text scanner init failed", "error", err)
		os.Exit(1)
	}

	urlScanner, err := urlscan.New(
		urlscan.NewHTTPResolver(resolverTimeout),
		urlscan.NewHeuristicClassifier(),
		thresholds,
		scanStore,
		urlscan.WithLogger(log),
		urlscan.WithMetrics(scanMetrics),
		urlscan.WithCache(buildVerdictCache(rdb)),
	)
	if err != nil {
		log.Error("url scanner init failed", "error", err)
		os.Exit(1)
	}

	enforcement, err := enfservice.New(buildCaseStore(db), hooks.NewLedgerHooks(restrictions, log),
		enfservice.WithLogger(log),
		enfservice.WithMetrics(enfmetrics.New()),
		enfservice.WithAudit(auditor),
	)
	if err != nil {
		log.Error("enforcement init failed", "error", err)
		os.Exit(1)
	}

	quarantine, err := qservice.New(buildQuarantineStore(db), enforcement,
		qservice.WithLogger(log),
		qservice.WithMetrics(qmetrics.New()),
		qservice.WithAudit(auditor),
	)
	if err != nil {
		log.Error("quarantine init failed", "error", err)
		os.Exit(1)
	}

	pipeMetrics := pipemetrics.New()
	workers := []*pipeline.Worker{
		pipeline.NewWorker("policy", stream.Ingress, transport, cursors,
			pipeline.NewIngressHandler(engine, pol, enforcement, transport, pipeMetrics, log).Handle,
			pipeline.WithLogger(log), pipeline.WithMetrics(pipeMetrics)),
		pipeline.NewWorker("text-scan", stream.Ingress, transport, cursors,
			pipeline.NewTextScanHandler(textScanner, transport, pipeMetrics, log).Handle,
			pipeline.WithLogger(log), pipeline.WithMetrics(pipeMetrics)),
		pipeline.NewWorker("url-scan", stream.Ingress, transport, cursors,
			pipeline.NewURLScanHandler(urlScanner, transport, pipeMetrics, log).Handle,
			pipeline.WithLogger(log), pipeline.WithMetrics(pipeMetrics)),
		pipeline.NewWorker("results", stream.Results, transport, cursors,
			pipeline.NewResultsHandler(enforcement, transport, pipeMetrics, log).Handle,
			pipeline.WithLogger(log), pipeline.WithMetrics(pipeMetrics)),
		pipeline.NewWorker("actions", stream.Decisions, transport, cursors,
			pipeline.NewActionsHandler(pipeMetrics, log).Handle,
			pipeline.WithLogger(log), pipeline.WithMetrics(pipeMetrics)),
		pipeline.NewWorker("quarantine-intake", stream.Quarantine, transport, cursors,
			pipeline.NewQuarantineHandler(quarantine, log).Handle,
			pipeline.WithLogger(log), pipeline.WithMetrics(pipeMetrics)),
	}

	handler := httptransport.New(gate, quarantine, enforcement, restrictions, reputation, log)
	router := httptransport.NewRouter(handler, cfg.AdminToken, log)
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	for _, w := range workers {
		g.Go(func() error { return w.Run(ctx) })
	}

	g.Go(func() error { return auditWorker.Run(ctx) })

	g.Go(func() error {
		return quarantine.Housekeeping(ctx, backlogInterval)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.DecayInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				if _, err := reputation.DecaySweep(ctx, now.Add(-cfg.DecayAfter)); err != nil {
					log.Warn("decay sweep failed", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				n, err := restrictions.PurgeExpired(ctx, now.Add(-purgeAfter))
				if err != nil {
					log.Warn("restriction purge failed", "error", err)
					continue
				}
				if n > 0 {
					log.Info("expired restrictions purged", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "stream_backend", cfg.StreamBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// buildStream selects the stream backend from config. The memory backend is
// only useful for local single-process runs.
func buildStream(ctx context.Context, cfg config.Config, rdb *platformredis.Client) (stream.Log, stream.CursorStore, error) {
	switch cfg.StreamBackend {
	case "kafka":
		log, err := stream.NewKafkaLog(ctx, cfg.KafkaBrokers,
			stream.Ingress, stream.Results, stream.Decisions, stream.Quarantine)
		if err != nil {
			return nil, nil, err
		}
		cursors := stream.CursorStore(stream.NewMemoryCursorStore())
		if rdb != nil {
			cursors = stream.NewRedisCursorStore(rdb.Client)
		}
		return log, cursors, nil
	case "redis":
		if rdb == nil {
			return nil, nil, errors.New("stream backend redis requires REDIS_URL")
		}
		return stream.NewRedisLog(rdb.Client), stream.NewRedisCursorStore(rdb.Client), nil
	case "memory":
		return stream.NewMemoryLog(), stream.NewMemoryCursorStore(), nil
	default:
		return nil, nil, errors.New("unknown stream backend " + cfg.StreamBackend)
	}
}

func buildAuditStore(db *sql.DB) audit.Store {
	if db != nil {
		return audit.NewPostgresStore(db)
	}
	return audit.NewMemoryStore()
}

func buildReputationStore(db *sql.DB) repstore.Store {
	if db != nil {
		return repstore.NewPostgres(db)
	}
	return repstore.NewMemory()
}

func buildRestrictionStore(db *sql.DB) resstore.Store {
	if db != nil {
		return resstore.NewPostgres(db)
	}
	return resstore.NewMemory()
}

func buildCaseStore(db *sql.DB) enfstore.Store {
	if db != nil {
		return enfstore.NewPostgres(db)
	}
	return enfstore.NewMemory()
}

func buildQuarantineStore(db *sql.DB) qstore.Store {
	if db != nil {
		return qstore.NewPostgres(db)
	}
	return qstore.NewMemory()
}

func buildScanStore(db *sql.DB) scan.Store {
	if db != nil {
		return scan.NewPostgresStore(db)
	}
	return scan.NewMemoryStore()
}

func buildCounterStore(rdb *platformredis.Client) velstore.CounterStore {
	if rdb != nil {
		return velstore.NewRedis(rdb.Client)
	}
	return velstore.NewMemory()
}

func buildVerdictCache(rdb *platformredis.Client) urlscan.VerdictCache {
	if rdb != nil {
		return urlscan.NewRedisCache(rdb.Client)
	}
	return urlscan.NewMemoryCache()
}
