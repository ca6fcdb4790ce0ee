package cli

import (
	"context"
	"time"

	"gamification-engine/internal/app"
	"gamification-engine/internal/config"
	"gamification-engine/internal/domain"
	"gamification-engine/internal/infra/memory"
	pgstore "gamification-engine/internal/infra/postgres"
	redisstore "gamification-engine/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// scoreStore is both the ranking read side and the submission write side.
type scoreStore interface {
	app.ScoreRecordStore
	AddRecord(ctx context.Context, rec domain.ScoreRecord) error
}

type engine struct {
	service *app.GamificationService
	scores  scoreStore
	closers []func()
}

func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// buildEngine wires the service from config. Postgres (if configured) holds
// quizzes, rosters and score records; Redis (if configured) holds progression,
// badge state, event logs and the quiz cache. Anything unconfigured runs in memory.
func buildEngine(ctx context.Context, cfg config.Config, log zerolog.Logger) (*engine, error) {
	e := &engine{}

	var (
		rosters app.RosterStore
		loader  memory.QuizLoader
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, pool.Close)
		e.scores = pgstore.NewScoreStore(pool)
		rosters = pgstore.NewRosterStore(pool)
		loader = pgstore.NewQuizLoader(pool)
		log.Info().Msg("using postgres for quizzes, rosters and scores")
	} else {
		memRosters := memory.NewRosterStore()
		seedRosters(memRosters)
		e.scores = memory.NewScoreStore()
		rosters = memRosters
		loader = memory.NewStaticQuizLoader(sampleQuizzes())
		log.Warn().Msg("postgres not configured, serving sample data from memory")
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var (
		quizzes      app.QuizCatalog
		progressions app.ProgressionRepository
		events       app.EventLog
		badges       app.BadgeRepository
		feeds        app.FeedRepository
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		e.closers = append(e.closers, func() { _ = client.Close() })
		quizzes = redisstore.NewQuizCatalog(client, loader, quizTTL)
		progressions = redisstore.NewProgressionStore(client)
		events = redisstore.NewEventLog(client)
		badges = redisstore.NewBadgeStore(client)
		feeds = redisstore.NewFeedStore(client, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		quizzes = memory.NewQuizCatalog(loader, quizTTL)
		progressions = memory.NewProgressionStore()
		events = memory.NewEventLog()
		badges = memory.NewBadgeStore()
		feeds = memory.NewFeedStore()
	}

	catalog, err := cfg.Gamification.BadgeCatalog()
	if err != nil {
		e.Close()
		return nil, err
	}
	tracker, err := app.NewBadgeProgressTracker(catalog, badges)
	if err != nil {
		e.Close()
		return nil, err
	}

	ledger := app.NewExperienceLedger(progressions, quizzes, app.NewLevelCurve(cfg.Gamification.XPPerLevel), cfg.Gamification.DefaultBaseXP)
	rankings := app.NewRankingAggregator(e.scores, rosters, progressions)
	e.service = app.NewGamificationService(ledger, rankings, tracker, events, feeds, log)
	return e, nil
}

// sampleQuizzes provides a minimal quiz set; configure postgres for real data.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {ID: "quiz-1", Title: "Warm-up arithmetic", Mode: domain.ModeSolo, ClassIDs: []string{"demo"}, BaseXP: 100},
		"quiz-2": {ID: "quiz-2", Title: "Team fractions", Mode: domain.ModeTeam, ClassIDs: []string{"demo"}, BaseXP: 150},
	}
}

func seedRosters(rosters *memory.RosterStore) {
	rosters.AddClass("demo",
		domain.Student{ID: "u1", DisplayName: "Alice"},
		domain.Student{ID: "u2", DisplayName: "Bob"},
		domain.Student{ID: "u3", DisplayName: "Chen"},
		domain.Student{ID: "u4", DisplayName: "Dana"},
	)
	rosters.AddTeam(domain.TeamRoster{ClassID: "demo", Name: "Nebula", MemberIDs: []string{"u1", "u2"}})
	rosters.AddTeam(domain.TeamRoster{ClassID: "demo", Name: "Comet", MemberIDs: []string{"u3", "u4"}})
}
