package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/barangaylink/sglgb-backend/internal/platform/envutil"
	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
)

const (
	NotificationReworkRequested    = "rework_requested"
	NotificationValidationComplete = "validation_complete"
)

// NotificationTask is one queued delivery. Tasks ride a redis stream so the
// API process never blocks on delivery.
type NotificationTask struct {
	Kind         string    `json:"kind"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

type NotificationQueue interface {
	Enqueue(ctx context.Context, task NotificationTask) error
	Dequeue(ctx context.Context, block time.Duration) (*NotificationTask, error)
	Close() error
}

type redisQueue struct {
	log      *logger.Logger
	rdb      *goredis.Client
	stream   string
	group    string
	consumer string
}

func NewRedisNotificationQueue(log *logger.Logger) (NotificationQueue, error) {
	addr := envutil.Str("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing env var REDIS_ADDR")
	}
	stream := envutil.Str("REDIS_NOTIFICATION_STREAM", "sglgb:notifications")
	group := envutil.Str("REDIS_NOTIFICATION_GROUP", "sglgb:notifiers")

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	// The group starts at the beginning of the stream so tasks enqueued by a
	// previous run are still delivered. BUSYGROUP means it already exists.
	if err := rdb.XGroupCreateMkStream(ctx, stream, group, "0").Err(); err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		_ = rdb.Close()
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return &redisQueue{
		log:      log.With("service", "RedisNotificationQueue"),
		rdb:      rdb,
		stream:   stream,
		group:    group,
		consumer: fmt.Sprintf("worker-%s", uuid.New().String()[:8]),
	}, nil
}

func (q *redisQueue) Enqueue(ctx context.Context, task NotificationTask) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return q.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{"task": string(raw)},
	}).Err()
}

func (q *redisQueue) Dequeue(ctx context.Context, block time.Duration) (*NotificationTask, error) {
	streams, err := q.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    q.group,
		Consumer: q.consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, err
	}
	for _, s := range streams {
		for _, msg := range s.Messages {
			if err := q.rdb.XAck(ctx, q.stream, q.group, msg.ID).Err(); err != nil {
				q.log.Warn("Failed to ack notification", "error", err, "message_id", msg.ID)
			}
			raw, _ := msg.Values["task"].(string)
			var task NotificationTask
			if err := json.Unmarshal([]byte(raw), &task); err != nil {
				q.log.Warn("bad notification payload", "error", err, "message_id", msg.ID)
				continue
			}
			return &task, nil
		}
	}
	return nil, nil
}

func (q *redisQueue) Close() error { return q.rdb.Close() }

// NotifierService enqueues user notifications. Every method is best-effort:
// a broken queue is logged and swallowed so workflow transitions never fail
// on notification plumbing. Safe to wire with a nil queue.
type NotifierService interface {
	NotifyReworkRequested(ctx context.Context, assessmentID uuid.UUID)
	NotifyValidationComplete(ctx context.Context, assessmentID uuid.UUID)
}

type notifierService struct {
	log   *logger.Logger
	queue NotificationQueue
}

func NewNotifierService(baseLog *logger.Logger, queue NotificationQueue) NotifierService {
	serviceLog := baseLog.With("service", "NotifierService")
	return &notifierService{log: serviceLog, queue: queue}
}

func (s *notifierService) NotifyReworkRequested(ctx context.Context, assessmentID uuid.UUID) {
	s.enqueue(ctx, NotificationReworkRequested, assessmentID)
}

func (s *notifierService) NotifyValidationComplete(ctx context.Context, assessmentID uuid.UUID) {
	s.enqueue(ctx, NotificationValidationComplete, assessmentID)
}

func (s *notifierService) enqueue(ctx context.Context, kind string, assessmentID uuid.UUID) {
	if s.queue == nil {
		s.log.Debug("Notification queue not configured, skipping", "kind", kind, "assessment_id", assessmentID)
		return
	}
	task := NotificationTask{
		Kind:         kind,
		AssessmentID: assessmentID,
		EnqueuedAt:   time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.log.Error("Failed to enqueue notification",
			"error", err,
			"kind", kind,
			"assessment_id", assessmentID,
		)
		return
	}
	s.log.Info("Notification enqueued", "kind", kind, "assessment_id", assessmentID)
}

func notificationMessage(kind, barangay string) string {
	if barangay == "" {
		barangay = "your barangay"
	}
	switch kind {
	case NotificationReworkRequested:
		return fmt.Sprintf("Your assessment for %s needs rework. Please review the assessor feedback and resubmit.", barangay)
	case NotificationValidationComplete:
		return fmt.Sprintf("Congratulations! Your assessment for %s has been validated and is now complete.", barangay)
	default:
		return strings.ReplaceAll(kind, "_", " ")
	}
}
