// Package notification reports finished job executions to a Notifier.
package notification

import (
	"context"
	"fmt"
	"time"

	port "github.com/tigerroll/chunkbatch/pkg/batch/core/application/port"
	model "github.com/tigerroll/chunkbatch/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// Notifier is an abstract interface for notifying external systems about job execution results.
type Notifier interface {
	// NotifyJobCompletion notifies about job completion (success/failure/stop).
	NotifyJobCompletion(ctx context.Context, execution *model.JobExecution)
}

// LogNotifier writes the notification to the log.
type LogNotifier struct{}

// NewLogNotifier creates a new instance of LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Summary renders the one-line notification of execution.
func Summary(execution *model.JobExecution) string {
	duration := time.Duration(0)
	if execution.EndTime != nil {
		duration = execution.EndTime.Sub(execution.StartTime)
	}
	return fmt.Sprintf(
		"Job Notification: Job '%s' (ID: %s, RunID: %d) finished with Status: %s, ExitStatus: %s. Duration: %s, Steps: %d, Failures: %d",
		execution.JobName,
		execution.ID,
		execution.RunID,
		execution.Status,
		execution.ExitStatus,
		duration,
		len(execution.StepExecutions),
		len(execution.Failures),
	)
}

// NotifyJobCompletion logs the summary at INFO for COMPLETED and WARN otherwise.
func (n *LogNotifier) NotifyJobCompletion(ctx context.Context, execution *model.JobExecution) {
	if execution.Status == model.BatchStatusCompleted {
		logger.Infof("%s", Summary(execution))
	} else {
		logger.Warnf("%s", Summary(execution))
	}
}

var _ Notifier = (*LogNotifier)(nil)

// NotificationListener adapts a Notifier to port.JobExecutionListener.
type NotificationListener struct {
	notifier Notifier
}

// NewNotificationListener creates a new instance of NotificationListener.
func NewNotificationListener(notifier Notifier) *NotificationListener {
	return &NotificationListener{notifier: notifier}
}

// BeforeJob does nothing.
func (l *NotificationListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {}

// AfterJob sends the notification.
func (l *NotificationListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.notifier.NotifyJobCompletion(ctx, jobExecution)
}

var _ port.JobExecutionListener = (*NotificationListener)(nil)
