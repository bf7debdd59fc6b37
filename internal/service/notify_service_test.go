package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reportdesk/report-desk-api/internal/models"
	"github.com/reportdesk/report-desk-api/pkg/jobs"
	"github.com/reportdesk/report-desk-api/pkg/mailer"
)

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type senderStub struct {
	messages []mailer.Message
	err      error
}

func (s *senderStub) Send(msg mailer.Message) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func TestNotifyCompletedEnqueues(t *testing.T) {
	queue := &queueStub{}
	svc := NewNotifyService(queue, zap.NewNop())

	report := &models.Report{ID: "rep-1", ReporterName: "Jan", ReporterEmail: "jan@example.com"}
	err := svc.NotifyCompleted(context.Background(), report, "all good", "Anna Nowak")
	require.NoError(t, err)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "report_completed", queue.jobs[0].Type)
	assert.Equal(t, "rep-1", queue.jobs[0].ID)
}

func TestNotifyCompletedRequiresReport(t *testing.T) {
	svc := NewNotifyService(&queueStub{}, zap.NewNop())

	err := svc.NotifyCompleted(context.Background(), nil, "", "")
	require.Error(t, err)
}

func TestMailHandlerRendersCompletionNotice(t *testing.T) {
	sender := &senderStub{}
	handle := MailHandler(sender, zap.NewNop())

	report := &models.Report{ID: "rep-1", ReporterName: "Jan", ReporterEmail: "jan@example.com"}
	err := handle(context.Background(), jobs.Job{
		ID:   report.ID,
		Type: "report_completed",
		Payload: completionNotice{
			report:        report,
			reviewNotes:   "documents verified",
			moderatorName: "Anna Nowak",
		},
	})
	require.NoError(t, err)

	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, "jan@example.com", msg.To)
	assert.Contains(t, msg.Subject, "rep-1")
	assert.Contains(t, msg.Body, "Anna Nowak")
	assert.Contains(t, msg.Body, "documents verified")
}

func TestMailHandlerSurfacesDeliveryFailure(t *testing.T) {
	sender := &senderStub{err: errors.New("smtp down")}
	handle := MailHandler(sender, zap.NewNop())

	report := &models.Report{ID: "rep-1", ReporterEmail: "jan@example.com"}
	err := handle(context.Background(), jobs.Job{
		Payload: completionNotice{report: report},
	})
	require.Error(t, err)
}

func TestMailHandlerRejectsUnexpectedPayload(t *testing.T) {
	handle := MailHandler(&senderStub{}, zap.NewNop())

	err := handle(context.Background(), jobs.Job{Payload: "bogus"})
	require.Error(t, err)
}
