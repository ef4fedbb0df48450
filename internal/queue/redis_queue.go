// Package queue carries render jobs from the api to the worker over a Redis
// list, and session state and undo signals over Redis Pub/Sub.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"captionstudio/internal/models"
	"captionstudio/internal/render"

	"github.com/redis/go-redis/v9"
)

const cancelChannelSuffix = ":cancel"

type RedisQueue struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueName: queueName}
}

// Push enqueues a render job.
func (q *RedisQueue) Push(ctx context.Context, job models.RenderJob) error {
	b, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, q.queueName, b).Err()
}

// Pop blocks for up to timeout waiting for a job (BRPOP). ok is false when
// the wait timed out.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (job models.RenderJob, ok bool, err error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.queueName).Result()
	if err == redis.Nil {
		return models.RenderJob{}, false, nil
	}
	if err != nil {
		return models.RenderJob{}, false, err
	}
	if len(res) < 2 {
		return models.RenderJob{}, false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return models.RenderJob{}, false, fmt.Errorf("invalid render job %q: %w", res[1], err)
	}
	return job, true, nil
}

// PublishState announces a session's new state to event subscribers.
func (q *RedisQueue) PublishState(ctx context.Context, sessionID string, snap render.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return q.rdb.Publish(ctx, q.stateChannel(sessionID), b).Err()
}

// SubscribeState streams a session's state snapshots until ctx is done.
func (q *RedisQueue) SubscribeState(ctx context.Context, sessionID string) (<-chan render.Snapshot, error) {
	sub := q.rdb.Subscribe(ctx, q.stateChannel(sessionID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan render.Snapshot, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var snap render.Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// PublishCancel tells the worker to stop rendering a session.
func (q *RedisQueue) PublishCancel(ctx context.Context, sessionID string) error {
	return q.rdb.Publish(ctx, q.queueName+cancelChannelSuffix, sessionID).Err()
}

// SubscribeCancel calls fn with the session id of every cancel signal until
// ctx is done.
func (q *RedisQueue) SubscribeCancel(ctx context.Context, fn func(sessionID string)) error {
	sub := q.rdb.Subscribe(ctx, q.queueName+cancelChannelSuffix)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			fn(msg.Payload)
		}
	}
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func (q *RedisQueue) stateChannel(sessionID string) string {
	return q.queueName + ":session:" + sessionID + ":state"
}
