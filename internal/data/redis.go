package data

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/repofetch/repofetch/internal/domain/model"
	apperrors "github.com/repofetch/repofetch/internal/errors"
)

const (
	redisJobKeyPrefix = "repofetch:job:"
	redisJobIndexKey  = "repofetch:jobs"

	// redisCASAttempts bounds the optimistic retry loop on contended keys.
	redisCASAttempts = 16
)

// RedisJobRepo stores jobs as JSON documents keyed by id, with a sorted set
// indexing ids by creation time for ordered listing. Guarded mutations use
// WATCH-based optimistic transactions so state and result change as one unit.
type RedisJobRepo struct {
	client *redis.Client
}

// NewRedisJobRepo wraps a connected client.
func NewRedisJobRepo(client *redis.Client) *RedisJobRepo {
	return &RedisJobRepo{client: client}
}

func redisJobKey(id string) string {
	return redisJobKeyPrefix + id
}

// Create stores a new job.
func (r *RedisJobRepo) Create(ctx context.Context, job *model.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encoding job")
	}
	ok, err := r.client.SetNX(ctx, redisJobKey(job.ID), doc, 0).Result()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "store job")
	}
	if !ok {
		return apperrors.Newf(apperrors.ErrCodeConflict, "job %s already exists", job.ID)
	}
	if err := r.client.ZAdd(ctx, redisJobIndexKey, redis.Z{
		Score:  float64(job.CreatedAt.UnixNano()),
		Member: job.ID,
	}).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "index job")
	}
	return nil
}

// GetByID returns the job or a not_found error.
func (r *RedisJobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	doc, err := r.client.Get(ctx, redisJobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NotFoundf("job %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "load job")
	}
	return decodeJob(doc)
}

// List returns all jobs, oldest first.
func (r *RedisJobRepo) List(ctx context.Context) ([]*model.Job, error) {
	ids, err := r.client.ZRange(ctx, redisJobIndexKey, 0, -1).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "list jobs")
	}
	out := make([]*model.Job, 0, len(ids))
	for _, id := range ids {
		job, err := r.GetByID(ctx, id)
		if apperrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

// UpdateConfig applies upd to a job still in CREATED.
func (r *RedisJobRepo) UpdateConfig(ctx context.Context, id string, upd *model.JobUpdate) (*model.Job, error) {
	return r.mutate(ctx, id, func(job *model.Job) error {
		if job.State != model.StateCreated {
			return apperrors.InvalidStatef("job %s is %s, only CREATED jobs can be updated", id, job.State)
		}
		if err := upd.Apply(job); err != nil {
			return err
		}
		job.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// MarkRunning transitions CREATED -> RUNNING and records the start time.
func (r *RedisJobRepo) MarkRunning(ctx context.Context, id string) (*model.Job, error) {
	return r.mutate(ctx, id, func(job *model.Job) error {
		if job.State != model.StateCreated {
			return apperrors.InvalidStatef("job %s is %s, only CREATED jobs can be started", id, job.State)
		}
		now := time.Now().UTC()
		job.State = model.StateRunning
		job.StartedAt = &now
		job.UpdatedAt = now
		return nil
	})
}

// AppendLog appends one entry to the job's log.
func (r *RedisJobRepo) AppendLog(ctx context.Context, id string, entry model.LogEntry) error {
	_, err := r.mutate(ctx, id, func(job *model.Job) error {
		job.Log = append(job.Log, entry)
		job.UpdatedAt = time.Now().UTC()
		return nil
	})
	return err
}

// Finish transitions the job to a terminal state and attaches the result.
func (r *RedisJobRepo) Finish(ctx context.Context, id string, fin model.JobFinish) (*model.Job, error) {
	return r.mutate(ctx, id, func(job *model.Job) error {
		if err := checkFinishTransition(job.State, fin.State); err != nil {
			return err
		}
		applyFinish(job, fin)
		return nil
	})
}

// mutate runs a guarded read-modify-write under WATCH, retrying when a
// concurrent writer invalidates the transaction.
func (r *RedisJobRepo) mutate(ctx context.Context, id string, fn func(*model.Job) error) (*model.Job, error) {
	key := redisJobKey(id)
	var out *model.Job

	txn := func(tx *redis.Tx) error {
		doc, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperrors.NotFoundf("job %s not found", id)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "load job")
		}
		job, err := decodeJob(doc)
		if err != nil {
			return err
		}
		if err := fn(job); err != nil {
			return err
		}
		updated, err := json.Marshal(job)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "encoding job")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		if err != nil {
			return err
		}
		out = job
		return nil
	}

	for range redisCASAttempts {
		err := r.client.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, apperrors.Internal("job mutation kept conflicting with concurrent writers")
}
