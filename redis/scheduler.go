package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/velmie/joboutbox"
)

// promoteScript moves up to ARGV[2] ids due at or before ARGV[1] from the schedule set onto
// the list of the queue recorded in their job hash. Job and queue keys are derived from the
// prefix in ARGV[3], so on Redis Cluster the prefix must pin them to the slot of KEYS[1].
var promoteScript = goredis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, id in ipairs(due) do
	local queue = redis.call('HGET', ARGV[3] .. 'job:' .. id, 'queue')
	if queue then
		redis.call('LPUSH', ARGV[3] .. 'queue:' .. queue, id)
	end
	redis.call('ZREM', KEYS[1], id)
end
return #due
`)

// Scheduler implements joboutbox.Scheduler on top of Redis lists and a sorted set.
type Scheduler struct {
	client goredis.UniversalClient
	cfg    Config
}

var _ joboutbox.Scheduler = (*Scheduler)(nil)

// NewScheduler constructs a Redis scheduler. A cluster client requires a hash-tagged prefix.
func NewScheduler(client goredis.UniversalClient, opts ...Option) (*Scheduler, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	cfg := newConfig(opts)
	if _, ok := client.(*goredis.ClusterClient); ok && !hasHashTag(cfg.Prefix) {
		return nil, ErrHashTagRequired
	}

	return &Scheduler{client: client, cfg: cfg}, nil
}

// Enqueue stores the job and pushes its id onto the queue list.
func (s *Scheduler) Enqueue(ctx context.Context, queue string, item joboutbox.WorkItem) (string, error) {
	if queue == "" {
		queue = joboutbox.DefaultQueue
	}
	item.Queue = queue
	id, fields, err := s.newJob(item, time.Time{})
	if err != nil {
		return "", err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.JobKey(id), fields)
		pipe.LPush(ctx, s.QueueKey(queue), id)

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("outbox redis: enqueue %s: %w", id, err)
	}

	return id, nil
}

// ScheduleAt stores the job and adds it to the schedule set due at at.
func (s *Scheduler) ScheduleAt(ctx context.Context, at time.Time, item joboutbox.WorkItem) (string, error) {
	if item.Queue == "" {
		item.Queue = joboutbox.DefaultQueue
	}
	id, fields, err := s.newJob(item, at)
	if err != nil {
		return "", err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, s.JobKey(id), fields)
		pipe.ZAdd(ctx, s.ScheduleKey(), goredis.Z{Score: float64(at.UnixMilli()), Member: id})

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("outbox redis: schedule %s: %w", id, err)
	}

	return id, nil
}

// ScheduleAfter schedules the job at the current clock time plus delay.
func (s *Scheduler) ScheduleAfter(ctx context.Context, delay time.Duration, item joboutbox.WorkItem) (string, error) {
	if delay < 0 {
		return "", joboutbox.ErrNegativeDelay
	}

	return s.ScheduleAt(ctx, s.cfg.Clock.Now().Add(delay), item)
}

// PromoteDue moves up to limit scheduled jobs whose time has come onto their queues and
// returns how many were moved.
func (s *Scheduler) PromoteDue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	now := s.cfg.Clock.Now().UnixMilli()
	moved, err := promoteScript.Run(ctx, s.client, []string{s.ScheduleKey()}, now, limit, s.cfg.Prefix).Int()
	if err != nil {
		return 0, fmt.Errorf("outbox redis: promote due: %w", err)
	}

	return moved, nil
}

// JobKey returns the hash key holding the job with id.
func (s *Scheduler) JobKey(id string) string {
	return s.cfg.Prefix + "job:" + id
}

// QueueKey returns the list key of queue.
func (s *Scheduler) QueueKey(queue string) string {
	return s.cfg.Prefix + "queue:" + queue
}

// ScheduleKey returns the sorted set key of delayed jobs.
func (s *Scheduler) ScheduleKey() string {
	return s.cfg.Prefix + "schedule"
}

func (s *Scheduler) newJob(item joboutbox.WorkItem, runAt time.Time) (string, map[string]any, error) {
	if item.Method == "" {
		return "", nil, ErrMethodRequired
	}
	uid, err := s.cfg.NewID()
	if err != nil {
		return "", nil, fmt.Errorf("outbox redis: job id: %w", err)
	}

	args := string(item.Args)
	if args == "" {
		args = "[]"
	}
	fields := map[string]any{
		"type":       item.Type,
		"method":     item.Method,
		"args":       args,
		"queue":      item.Queue,
		"created_at": strconv.FormatInt(s.cfg.Clock.Now().UnixMilli(), 10),
	}
	if !runAt.IsZero() {
		fields["run_at"] = strconv.FormatInt(runAt.UnixMilli(), 10)
	}

	return uid.String(), fields, nil
}
