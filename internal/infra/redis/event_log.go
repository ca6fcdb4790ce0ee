package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"gamification-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// appendScript stores each event under its key with HSETNX and records the
// append order only for keys that were new.
var appendScript = redis.NewScript(`
local added = 0
for i = 1, #ARGV, 2 do
  if redis.call('HSETNX', KEYS[1], ARGV[i], ARGV[i + 1]) == 1 then
    redis.call('RPUSH', KEYS[2], ARGV[i])
    added = added + 1
  end
end
return added
`)

// EventLog is the Redis-backed per-student badge event history.
//
//	HSET  events:{studentID}       {eventKey} {eventJSON}
//	RPUSH events:{studentID}:order {eventKey}
type EventLog struct {
	client *redis.Client
}

func NewEventLog(client *redis.Client) *EventLog {
	return &EventLog{client: client}
}

func (l *EventLog) AppendEvents(ctx context.Context, studentID string, events ...domain.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, len(events)*2)
	for _, ev := range events {
		raw, err := json.Marshal(ev)
		if err != nil {
			return 0, err
		}
		args = append(args, ev.Key, raw)
	}
	added, err := appendScript.Run(ctx, l.client, []string{l.eventsKey(studentID), l.orderKey(studentID)}, args...).Int()
	if err != nil {
		return 0, fmt.Errorf("append events for %s: %w", studentID, err)
	}
	return added, nil
}

func (l *EventLog) Events(ctx context.Context, studentID string) ([]domain.Event, error) {
	keys, err := l.client.LRange(ctx, l.orderKey(studentID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []domain.Event{}, nil
	}
	values, err := l.client.HMGet(ctx, l.eventsKey(studentID), keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Event, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: event %s listed but missing", domain.ErrInvalidState, keys[i])
		}
		var ev domain.Event
		if err := json.Unmarshal([]byte(str), &ev); err != nil {
			return nil, fmt.Errorf("decode event %s: %w", keys[i], err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (l *EventLog) ResetEvents(ctx context.Context, studentID string) error {
	return l.client.Del(ctx, l.eventsKey(studentID), l.orderKey(studentID)).Err()
}

func (l *EventLog) eventsKey(studentID string) string {
	return "events:" + studentID
}

func (l *EventLog) orderKey(studentID string) string {
	return "events:" + studentID + ":order"
}
