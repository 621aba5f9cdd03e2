package model

// BatchStatus is the lifecycle state of a job or step execution.
type BatchStatus string

const (
	BatchStatusReady     BatchStatus = "READY"
	BatchStatusExecuting BatchStatus = "EXECUTING"
	BatchStatusCompleted BatchStatus = "COMPLETED"
	BatchStatusFailed    BatchStatus = "FAILED"
	BatchStatusStopped   BatchStatus = "STOPPED"
	BatchStatusUnknown   BatchStatus = "UNKNOWN"
)

// String returns the status name.
func (s BatchStatus) String() string {
	return string(s)
}

// IsFinished reports whether s is terminal.
func (s BatchStatus) IsFinished() bool {
	switch s {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusStopped:
		return true
	}
	return false
}

// ToExitStatus maps a terminal status to the matching built-in exit status.
func (s BatchStatus) ToExitStatus() ExitStatus {
	switch s {
	case BatchStatusCompleted:
		return ExitStatusCompleted
	case BatchStatusFailed:
		return ExitStatusFailed
	case BatchStatusStopped:
		return ExitStatusStopped
	case BatchStatusExecuting:
		return ExitStatusExecuting
	}
	return ExitStatusUnknown
}

// canTransition encodes READY -> EXECUTING -> {COMPLETED, FAILED, STOPPED}.
// A READY execution may also fail or stop without ever executing.
func canTransition(current, next BatchStatus) bool {
	switch current {
	case BatchStatusReady:
		return next == BatchStatusExecuting || next == BatchStatusFailed || next == BatchStatusStopped
	case BatchStatusExecuting:
		return next == BatchStatusCompleted || next == BatchStatusFailed || next == BatchStatusStopped
	}
	return false
}

// ExitStatus is the outcome string of a step or job. Values other than the
// built-ins are custom statuses that transitions can route on.
type ExitStatus string

const (
	ExitStatusUnknown   ExitStatus = "UNKNOWN"
	ExitStatusExecuting ExitStatus = "EXECUTING"
	ExitStatusCompleted ExitStatus = "COMPLETED"
	ExitStatusFailed    ExitStatus = "FAILED"
	ExitStatusStopped   ExitStatus = "STOPPED"
	ExitStatusNoOp      ExitStatus = "NOOP"
)

// String returns the exit status text.
func (s ExitStatus) String() string {
	return string(s)
}

// RepeatStatus is returned by a tasklet to say whether it wants to be called again.
type RepeatStatus string

const (
	RepeatStatusFinished    RepeatStatus = "FINISHED"
	RepeatStatusContinuable RepeatStatus = "CONTINUABLE"
)

// ContinueIf returns CONTINUABLE when cond holds and FINISHED otherwise.
func ContinueIf(cond bool) RepeatStatus {
	if cond {
		return RepeatStatusContinuable
	}
	return RepeatStatusFinished
}

// IsContinuable reports whether the tasklet asked to be invoked again.
func (r RepeatStatus) IsContinuable() bool {
	return r == RepeatStatusContinuable
}
