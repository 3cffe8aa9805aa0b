package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/domain"
)

const (
	appKeyPrefix  = "jobs:app:"   // Record data: jobs:app:{id}
	appIndexKey   = "jobs:apps"   // Set of every record id
	changeChannel = "jobs:events" // Pub/Sub channel, one message per write
)

// RedisStore keeps the collection in Redis and signals changes over Pub/Sub
type RedisStore struct {
	client *redis.Client
	retry  retryPolicy
	now    func() time.Time
}

// NewRedisStore creates a new RedisStore
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		retry:  defaultRetry,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new record with a fresh id and creation timestamp
func (r *RedisStore) Create(ctx context.Context, in domain.Input) (string, error) {
	createdAt := r.now()
	app := domain.JobApplication{
		ID:              uuid.New().String(),
		CompanyName:     in.CompanyName,
		JobRole:         in.JobRole,
		ApplicationDate: in.ApplicationDate,
		Status:          in.Status,
		Notes:           in.Notes,
		CreatedAt:       &createdAt,
	}

	data, err := json.Marshal(app)
	if err != nil {
		return "", writeErr("create", "", fmt.Errorf("marshal: %w", err))
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.appKey(app.ID), data, 0)
	pipe.SAdd(ctx, appIndexKey, app.ID)
	pipe.Publish(ctx, changeChannel, app.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", writeErr("create", "", err)
	}

	return app.ID, nil
}

// Update overwrites the mutable fields of an existing record, keeping CreatedAt
func (r *RedisStore) Update(ctx context.Context, id string, in domain.Input) error {
	key := r.appKey(id)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		var app domain.JobApplication
		if err := json.Unmarshal(raw, &app); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		app.CompanyName = in.CompanyName
		app.JobRole = in.JobRole
		app.ApplicationDate = in.ApplicationDate
		app.Status = in.Status
		app.Notes = in.Notes

		data, err := json.Marshal(app)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Publish(ctx, changeChannel, id)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return writeErr("update", id, err)
	}

	return nil
}

// Delete removes a record and its index entry
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.appKey(id))
	pipe.SRem(ctx, appIndexKey, id)
	pipe.Publish(ctx, changeChannel, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return writeErr("delete", id, err)
	}
	return nil
}

// Ping checks the connection
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Subscribe listens on the change channel and reloads the full collection
// for the initial state and after every change message.
func (r *RedisStore) Subscribe(ctx context.Context) *Stream {
	return NewStream(ctx, func(ctx context.Context, emit EmitFunc) {
		for attempt := 0; ; attempt++ {
			err := r.follow(ctx, emit, func() { attempt = -1 })
			if ctx.Err() != nil {
				return
			}
			if !emit(errorEvent(err)) || !r.retry.wait(ctx, attempt) {
				return
			}
		}
	})
}

// follow runs one subscription session until it fails or ctx ends
func (r *RedisStore) follow(ctx context.Context, emit EmitFunc, healthy func()) error {
	pubsub := r.client.Subscribe(ctx, changeChannel)
	defer pubsub.Close()
	// a blocked read is only released by closing the connection
	stop := context.AfterFunc(ctx, func() { _ = pubsub.Close() })
	defer stop()

	// Wait for the subscription to be confirmed so no change between the
	// initial load and the first message is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for {
		records, err := r.load(ctx)
		if err != nil {
			return err
		}
		if !emit(snapshotEvent(records)) {
			return ctx.Err()
		}
		healthy()

		if _, err := pubsub.ReceiveMessage(ctx); err != nil {
			return fmt.Errorf("receive: %w", err)
		}
	}
}

func (r *RedisStore) load(ctx context.Context) ([]domain.JobApplication, error) {
	ids, err := r.client.SMembers(ctx, appIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	if len(ids) == 0 {
		return []domain.JobApplication{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.appKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	out := make([]domain.JobApplication, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// deleted between SMEMBERS and MGET
			continue
		}
		var app domain.JobApplication
		if err := json.Unmarshal([]byte(s), &app); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		out = append(out, app)
	}

	sortSnapshot(out)
	return out, nil
}

func (r *RedisStore) appKey(id string) string {
	return fmt.Sprintf("%s%s", appKeyPrefix, id)
}
