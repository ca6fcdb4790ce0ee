package redis

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"gamification-engine/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz metadata from a backing store (e.g., Postgres).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizCatalog caches quiz metadata in Redis (hash per quiz) and falls back to a loader on cache miss.
// Metadata is stored as: HSET quiz:{quizID}:meta title|mode|classIds|baseXp|dueAt
type QuizCatalog struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewQuizCatalog(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizCatalog {
	return &QuizCatalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCatalog) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	key := c.metaKey(quizID)

	fields, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return quizFromHash(quizID, fields), nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return quizFromHash(quizID, fields), nil
		}

		quiz, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		ttl := c.ttlWithJitter()
		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key, quizToHash(quiz))
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (c *QuizCatalog) metaKey(quizID string) string {
	return "quiz:" + quizID + ":meta"
}

func quizToHash(quiz domain.Quiz) map[string]interface{} {
	fields := map[string]interface{}{
		"title":    quiz.Title,
		"mode":     string(quiz.Mode),
		"classIds": strings.Join(quiz.ClassIDs, ","),
		"baseXp":   quiz.BaseXP,
	}
	if quiz.DueAt != nil {
		fields["dueAt"] = quiz.DueAt.UTC().Format(time.RFC3339)
	}
	return fields
}

func quizFromHash(quizID string, fields map[string]string) domain.Quiz {
	quiz := domain.Quiz{
		ID:    quizID,
		Title: fields["title"],
		Mode:  domain.Mode(fields["mode"]),
	}
	if ids := fields["classIds"]; ids != "" {
		quiz.ClassIDs = strings.Split(ids, ",")
	}
	if xp, err := strconv.Atoi(fields["baseXp"]); err == nil {
		quiz.BaseXP = xp
	}
	if due, err := time.Parse(time.RFC3339, fields["dueAt"]); err == nil {
		quiz.DueAt = &due
	}
	return quiz
}

func (c *QuizCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
