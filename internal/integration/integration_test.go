package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gamification-engine/internal/app"
	"gamification-engine/internal/domain"
	pgstore "gamification-engine/internal/infra/postgres"
	pgmigrations "gamification-engine/internal/infra/postgres/migrations"
	redisstore "gamification-engine/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestCompletionAndRankingEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	loader := pgstore.NewQuizLoader(pool)
	rosters := pgstore.NewRosterStore(pool)
	scores := pgstore.NewScoreStore(pool)
	seed(t, ctx, loader, rosters)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	progressions := redisstore.NewProgressionStore(redisClient)
	tracker, err := app.NewBadgeProgressTracker(nil, redisstore.NewBadgeStore(redisClient))
	if err != nil {
		t.Fatalf("tracker: %v", err)
	}
	ledger := app.NewExperienceLedger(progressions, redisstore.NewQuizCatalog(redisClient, loader, 5*time.Minute), app.NewLevelCurve(500), 100)
	service := app.NewGamificationService(ledger, app.NewRankingAggregator(scores, rosters, progressions), tracker,
		redisstore.NewEventLog(redisClient), redisstore.NewFeedStore(redisClient, 5*time.Minute), zerolog.Nop())

	submit := func(student string, raw int) domain.CompletionResult {
		rec := domain.ScoreRecord{
			StudentID: student, QuizID: "quiz-1", ClassID: "C1", Mode: domain.ModeSolo,
			ScoreRaw: raw, ScoreTotal: 100, CompletedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
		if err := scores.AddRecord(ctx, rec); err != nil {
			t.Fatalf("add record: %v", err)
		}
		result, err := service.OnQuizCompleted(ctx, student, rec)
		if err != nil {
			t.Fatalf("complete: %v", err)
		}
		return result
	}

	alice := submit("u1", 80)
	if alice.Experience.ExpGain != 240 {
		t.Fatalf("expected quiz budget of 300 to yield 240 xp, got %d", alice.Experience.ExpGain)
	}
	submit("u2", 95)

	if err := scores.AddRecord(ctx, domain.ScoreRecord{
		StudentID: "u1", QuizID: "quiz-1", ClassID: "C1", Mode: domain.ModeSolo, ScoreRaw: 1, ScoreTotal: 100, CompletedAt: time.Now(),
	}); !errors.Is(err, domain.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate submission, got %v", err)
	}

	ranking, err := service.Rank(ctx, domain.SoloQuizScope("C1", "quiz-1"))
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(ranking.Podium) != 2 || ranking.Podium[0].ParticipantID != "u2" || ranking.Podium[0].DisplayName != "Bob" {
		t.Fatalf("expected Bob leading, got %+v", ranking.Podium)
	}

	progress, err := service.BadgeProgress(ctx, "u2")
	if err != nil {
		t.Fatalf("badge progress: %v", err)
	}
	for _, p := range progress {
		if p.CategoryID == domain.CategoryApexAchiever && p.CurrentCount != 1 {
			t.Fatalf("expected one top-1 placement for Bob, got %d", p.CurrentCount)
		}
	}

	xp, err := service.Leaderboard(ctx, domain.ExperienceScope(""))
	if err != nil {
		t.Fatalf("experience leaderboard: %v", err)
	}
	if len(xp.Podium) != 2 || xp.Podium[0].ParticipantID != "u2" {
		t.Fatalf("expected u2 leading on experience, got %+v", xp.Podium)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "gamify", "POSTGRES_PASSWORD": "gamifypass", "POSTGRES_DB": "gamify"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://gamify:gamifypass@%s:%s/gamify?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seed(t *testing.T, ctx context.Context, quizzes *pgstore.QuizLoader, rosters *pgstore.RosterStore) {
	t.Helper()
	if err := quizzes.SaveQuiz(ctx, domain.Quiz{ID: "quiz-1", Title: "Fractions", Mode: domain.ModeSolo, ClassIDs: []string{"C1"}, BaseXP: 300}); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	if err := rosters.AddClass(ctx, "C1",
		domain.Student{ID: "u1", DisplayName: "Alice"},
		domain.Student{ID: "u2", DisplayName: "Bob"},
		domain.Student{ID: "u3", DisplayName: "Chen"},
	); err != nil {
		t.Fatalf("seed class: %v", err)
	}
	if err := rosters.AddTeam(ctx, domain.TeamRoster{ClassID: "C1", Name: "Nebula", MemberIDs: []string{"u1", "u2"}}); err != nil {
		t.Fatalf("seed team: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
