package digest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobsKey  = "digests"
	queueKey = "digest_queue"
)

var ErrJobNotFound = errors.New("digest job not found")

type Queue struct {
	client *redis.Client
}

func NewQueue(redisAddr string) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Queue{client: client}, nil
}

// Enqueue stores the job and schedules it at ScheduledAt.
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	if err := q.Update(ctx, job); err != nil {
		return err
	}

	return q.client.ZAdd(ctx, queueKey, redis.Z{
		Score:  float64(job.ScheduledAt.UnixMilli()),
		Member: job.ID,
	}).Err()
}

// Dequeue claims the earliest job that is due. It returns nil, nil when no
// job is due or another worker claimed it first.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	now := time.Now().UnixMilli()

	results, err := q.client.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now, 10),
		Count: 1,
	}).Result()
	if err != nil || len(results) == 0 {
		return nil, err
	}

	jobID := results[0]
	removed, err := q.client.ZRem(ctx, queueKey, jobID).Result()
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		return nil, nil
	}

	return q.Get(ctx, jobID)
}

func (q *Queue) Update(ctx context.Context, job *Job) error {
	jobJSON, err := job.ToJSON()
	if err != nil {
		return err
	}

	return q.client.HSet(ctx, jobsKey, job.ID, jobJSON).Err()
}

func (q *Queue) Get(ctx context.Context, jobID string) (*Job, error) {
	jobJSON, err := q.client.HGet(ctx, jobsKey, jobID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	return JobFromJSON(jobJSON)
}

// All returns every stored job, in no particular order.
func (q *Queue) All(ctx context.Context) ([]*Job, error) {
	entries, err := q.client.HGetAll(ctx, jobsKey).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]*Job, 0, len(entries))
	for id, jobJSON := range entries {
		job, err := JobFromJSON(jobJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to decode digest job %s: %w", id, err)
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Depth returns the number of jobs waiting in the queue, due or not.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, queueKey).Result()
}

func (q *Queue) Close() error {
	return q.client.Close()
}
