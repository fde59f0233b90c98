package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Shreya-nipunge/Glowra/internal/activity"
	"github.com/Shreya-nipunge/Glowra/internal/ai"
	"github.com/Shreya-nipunge/Glowra/internal/chat"
	"github.com/Shreya-nipunge/Glowra/internal/config"
	"github.com/Shreya-nipunge/Glowra/internal/crypto"
	"github.com/Shreya-nipunge/Glowra/internal/db"
	"github.com/Shreya-nipunge/Glowra/internal/gamification"
	"github.com/Shreya-nipunge/Glowra/internal/insights"
	"github.com/Shreya-nipunge/Glowra/internal/meditation"
	"github.com/Shreya-nipunge/Glowra/internal/models"
	"github.com/Shreya-nipunge/Glowra/internal/planner"
	"github.com/Shreya-nipunge/Glowra/internal/sink"
	"github.com/Shreya-nipunge/Glowra/internal/store/firestore"
	"github.com/Shreya-nipunge/Glowra/internal/store/memory"
	"github.com/Shreya-nipunge/Glowra/internal/store/postgres"
)

// app holds the services behind the router and the resources to release on
// shutdown.
type app struct {
	activity    *activity.Service
	planner     *planner.Engine
	chat        *chat.Service
	meditation  *meditation.Service
	insights    *insights.Summarizer
	progression *gamification.Progression

	async   *sink.Async
	closers []func() error
}

func (a *app) close(timeout time.Duration) {
	if a.async != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := a.async.Close(ctx); err != nil {
			slog.Warn("analytics buffer not drained", slog.Any("err", err))
		}
		cancel()
		if n := a.async.Dropped(); n > 0 {
			slog.Warn("analytics events dropped", slog.Int64("count", n))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", slog.Any("err", err))
		}
	}
}

type stores struct {
	events models.EventStore
	plans  models.PlanStore
	ledger models.LedgerStore
}

func openPostgres(ctx context.Context, url string) (*sqlx.DB, error) {
	conn, err := sqlx.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetConnMaxLifetime(2 * time.Hour)
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging db: %w", err)
	}
	return conn, nil
}

func build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close(time.Second)
		return nil, err
	}

	var sealer *crypto.Sealer
	if cfg.EncryptionSecret != "" {
		var err error
		if sealer, err = crypto.DeriveSealer(cfg.EncryptionSecret); err != nil {
			return nil, fmt.Errorf("deriving encryption keys: %w", err)
		}
	} else if cfg.Storage != config.StorageMemory {
		slog.Warn("ENCRYPTION_SECRET not set; journal text is stored in plaintext")
	}

	var st stores
	switch cfg.Storage {
	case config.StoragePostgres:
		conn, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, conn.Close)
		if err := db.RunMigrations(ctx, conn); err != nil {
			return fail(fmt.Errorf("running migrations: %w", err))
		}
		pg := postgres.New(conn, sealer)
		st = stores{events: pg, plans: pg, ledger: pg}
	case config.StorageFirestore:
		fs, err := firestore.NewStore(ctx, cfg.GCPProjectID, sealer)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, fs.Close)
		st = stores{events: fs, plans: fs, ledger: fs}
	default:
		st = stores{events: memory.NewEventStore(), plans: memory.NewPlanStore(), ledger: memory.NewLedgerStore()}
	}

	var (
		analyzer    models.JournalAnalyzer
		recommender models.Recommender
		responder   models.ChatResponder
	)
	switch cfg.AI {
	case config.AIGemini:
		g, err := ai.NewGeminiClient(ctx, ai.Config{
			APIKey:         cfg.GeminiAPIKey,
			Project:        cfg.GCPProjectID,
			Location:       cfg.GCPLocation,
			AnalysisModel:  cfg.AnalysisModel,
			RecommendModel: cfg.RecommendModel,
		})
		if err != nil {
			return fail(err)
		}
		analyzer, recommender, responder = g, g, g
	default:
		m := ai.NewMock()
		analyzer, recommender, responder = m, m, m
	}

	var eventSink models.EventSink
	switch cfg.Analytics {
	case config.AnalyticsBigQuery:
		bq, err := sink.NewBigQuery(ctx, cfg.GCPProjectID, cfg.BQDataset, sealer.Pseudonym)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, bq.Close)
		if err := bq.EnsureTables(ctx, cfg.BQLocation); err != nil {
			log.Warn("adapter degraded", zap.String("adapter", "bigquery"), zap.Error(err))
		}
		a.async = sink.NewAsync(bq, cfg.AnalyticsBuffer, log)
		eventSink = a.async
	case config.AnalyticsLog:
		eventSink = sink.NewLog(log)
	}

	ledger := gamification.NewLedger(st.ledger, cfg.LedgerMaxAttempts, log)
	a.progression = gamification.NewProgression(ledger, activity.NewAccessor(st.events), log)
	a.activity = activity.NewService(st.events, a.progression, activity.Options{
		Analyzer:       analyzer,
		Sink:           eventSink,
		AnalyzeTimeout: cfg.AnalyzeTimeout,
		Logger:         log,
	})
	a.planner = planner.NewEngine(st.plans, st.events, a.progression, planner.Options{
		Recommender: recommender,
		Sink:        eventSink,
		Timeout:     cfg.RecommendTimeout,
		Logger:      log,
	})
	a.chat = chat.NewService(st.events, a.progression, chat.Options{
		Responder:    responder,
		Sink:         eventSink,
		ReplyTimeout: cfg.ChatTimeout,
		Logger:       log,
	})
	a.meditation = meditation.NewService(st.events, a.progression, meditation.Options{
		Sink:   eventSink,
		Logger: log,
	})
	a.insights = insights.NewSummarizer(st.events, st.plans, a.progression, insights.Options{
		CacheTTL: cfg.InsightsCacheTTL,
		Logger:   log,
	})
	return a, nil
}
