package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/geocoder89/eventform/internal/jobs"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultQueueName = "eventform:exports"
	DefaultStatusTTL = 24 * time.Hour
)

// JobQueue keeps job ids on a ready list and a delayed sorted set, and every
// job's full state under its own status key.
type JobQueue struct {
	rdb       *redis.Client
	name      string
	statusTTL time.Duration
}

func NewJobQueue(c *Client, name string) *JobQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &JobQueue{rdb: c.Raw(), name: name, statusTTL: DefaultStatusTTL}
}

func (q *JobQueue) readyKey() string { return q.name }

func (q *JobQueue) delayedKey() string { return q.name + ":delayed" }

// StatusKey is eventform:exports -> eventform:export:<id>.
func (q *JobQueue) StatusKey(id string) string {
	base := q.name
	if n := len(base); n > 0 && base[n-1] == 's' {
		base = base[:n-1]
	}
	return base + ":" + id
}

// Enqueue stores the job status and makes it ready for the next worker.
func (q *JobQueue) Enqueue(ctx context.Context, j jobs.Job) error {
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}

	_, err = q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, q.StatusKey(j.ID), b, q.statusTTL)
		p.RPush(ctx, q.readyKey(), j.ID)
		return nil
	})
	return err
}

// Schedule stores the job and parks it until j.RunAt.
func (q *JobQueue) Schedule(ctx context.Context, j jobs.Job) error {
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}

	_, err = q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, q.StatusKey(j.ID), b, q.statusTTL)
		p.ZAdd(ctx, q.delayedKey(), redis.Z{Score: float64(j.RunAt.UnixMilli()), Member: j.ID})
		return nil
	})
	return err
}

// PromoteDue moves delayed jobs whose time has come onto the ready list.
func (q *JobQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	ids, err := q.rdb.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, id := range ids {
		// only the caller that wins the ZREM pushes, so concurrent promoters don't duplicate
		removed, err := q.rdb.ZRem(ctx, q.delayedKey(), id).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.RPush(ctx, q.readyKey(), id).Err(); err != nil {
			return moved, err
		}
		moved++
	}

	return moved, nil
}

// Dequeue blocks up to timeout for a ready job. jobs.ErrNoJob means nothing arrived.
func (q *JobQueue) Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.readyKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobs.Job{}, jobs.ErrNoJob
		}
		return jobs.Job{}, err
	}

	// BLPOP returns [key, value]
	if len(res) != 2 {
		return jobs.Job{}, fmt.Errorf("unexpected BLPOP reply: %v", res)
	}

	j, err := q.Get(ctx, res[1])
	if errors.Is(err, jobs.ErrJobNotFound) {
		// status expired while queued, nothing left to run
		return jobs.Job{}, jobs.ErrNoJob
	}
	return j, err
}

func (q *JobQueue) Save(ctx context.Context, j jobs.Job) error {
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return q.rdb.Set(ctx, q.StatusKey(j.ID), b, q.statusTTL).Err()
}

func (q *JobQueue) Get(ctx context.Context, id string) (jobs.Job, error) {
	b, err := q.rdb.Get(ctx, q.StatusKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobs.Job{}, jobs.ErrJobNotFound
		}
		return jobs.Job{}, err
	}

	var j jobs.Job
	if err := json.Unmarshal(b, &j); err != nil {
		return jobs.Job{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return j, nil
}

// Depth reports the ready and delayed backlog.
func (q *JobQueue) Depth(ctx context.Context) (ready, delayed int64, err error) {
	if ready, err = q.rdb.LLen(ctx, q.readyKey()).Result(); err != nil {
		return 0, 0, err
	}
	if delayed, err = q.rdb.ZCard(ctx, q.delayedKey()).Result(); err != nil {
		return 0, 0, err
	}
	return ready, delayed, nil
}

func (q *JobQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
