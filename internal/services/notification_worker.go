package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/barangaylink/sglgb-backend/internal/platform/logger"
	"github.com/barangaylink/sglgb-backend/internal/repos"
)

// NotificationWorker drains the notification queue and delivers each task.
// Delivery is currently a structured log entry; email and SMS channels hang
// off deliver when they land.
type NotificationWorker struct {
	db             *gorm.DB
	log            *logger.Logger
	queue          NotificationQueue
	assessmentRepo repos.AssessmentRepo
	userRepo       repos.UserRepo
}

func NewNotificationWorker(
	db *gorm.DB,
	baseLog *logger.Logger,
	queue NotificationQueue,
	assessmentRepo repos.AssessmentRepo,
	userRepo repos.UserRepo,
) *NotificationWorker {
	workerLog := baseLog.With("service", "NotificationWorker")
	return &NotificationWorker{
		db:             db,
		log:            workerLog,
		queue:          queue,
		assessmentRepo: assessmentRepo,
		userRepo:       userRepo,
	}
}

func (w *NotificationWorker) Start(ctx context.Context) {
	if w.queue == nil {
		w.log.Info("Notification queue not configured, worker not started")
		return
	}
	go w.run(ctx)
}

func (w *NotificationWorker) run(ctx context.Context) {
	w.log.Info("Notification worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Notification worker stopped")
			return
		default:
		}
		task, err := w.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Error("Failed to read notification queue", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			continue
		}
		w.deliver(ctx, task)
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, task *NotificationTask) {
	assessment, err := w.assessmentRepo.GetByID(ctx, nil, task.AssessmentID)
	if err != nil {
		w.log.Error("Assessment not found for notification",
			"error", err,
			"assessment_id", task.AssessmentID,
			"kind", task.Kind,
		)
		return
	}
	user, err := w.userRepo.GetByID(ctx, nil, assessment.BLGUUserID)
	if err != nil {
		w.log.Error("BLGU user not found for notification",
			"error", err,
			"assessment_id", task.AssessmentID,
			"blgu_user_id", assessment.BLGUUserID,
		)
		return
	}

	barangay := ""
	if user.Barangay != nil {
		barangay = user.Barangay.Name
	}

	w.log.Info("Notification delivered",
		"kind", task.Kind,
		"assessment_id", assessment.ID,
		"assessment_status", assessment.Status,
		"rework_count", assessment.ReworkCount,
		"blgu_user_name", user.Name,
		"blgu_user_email", user.Email,
		"barangay", barangay,
		"message", notificationMessage(task.Kind, barangay),
	)
}
