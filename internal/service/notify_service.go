package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/reportdesk/report-desk-api/internal/models"
	"github.com/reportdesk/report-desk-api/pkg/jobs"
	"github.com/reportdesk/report-desk-api/pkg/mailer"
)

// Notifier delivers a completion notice for a reviewed report. The
// workflow treats it as fire-and-forget: an error is logged by the caller
// and never blocks or rolls back the review.
type Notifier interface {
	NotifyCompleted(ctx context.Context, report *models.Report, reviewNotes, moderatorName string) error
}

type notifyDispatcher interface {
	Enqueue(job jobs.Job) error
}

type completionNotice struct {
	report        *models.Report
	reviewNotes   string
	moderatorName string
}

// NotifyService renders completion emails and hands them to the in-memory
// dispatch queue. Delivery is best-effort and not durable.
type NotifyService struct {
	queue  notifyDispatcher
	logger *zap.Logger
}

// NewNotifyService constructs the notifier.
func NewNotifyService(queue notifyDispatcher, logger *zap.Logger) *NotifyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifyService{queue: queue, logger: logger}
}

// NotifyCompleted enqueues the completion email for the reporter.
func (s *NotifyService) NotifyCompleted(ctx context.Context, report *models.Report, reviewNotes, moderatorName string) error {
	if report == nil {
		return fmt.Errorf("report required")
	}
	return s.queue.Enqueue(jobs.Job{
		ID:   report.ID,
		Type: "report_completed",
		Payload: completionNotice{
			report:        report,
			reviewNotes:   reviewNotes,
			moderatorName: moderatorName,
		},
	})
}

// MailHandler returns the queue handler that renders and sends the email.
func MailHandler(sender mailer.Sender, logger *zap.Logger) jobs.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, job jobs.Job) error {
		notice, ok := job.Payload.(completionNotice)
		if !ok {
			return fmt.Errorf("unexpected payload %T", job.Payload)
		}
		msg := mailer.Message{
			To:      notice.report.ReporterEmail,
			Subject: fmt.Sprintf("Your report %s has been reviewed", notice.report.ID),
			Body: fmt.Sprintf(
				"Hello %s,\n\nyour report has been reviewed and completed by %s.\n\nReview notes:\n%s\n",
				notice.report.ReporterName, notice.moderatorName, notice.reviewNotes),
		}
		if err := sender.Send(msg); err != nil {
			logger.Warn("completion mail delivery failed",
				zap.String("report_id", notice.report.ID), zap.Error(err))
			return err
		}
		return nil
	}
}
