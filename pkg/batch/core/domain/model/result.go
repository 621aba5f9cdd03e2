package model

// StepResult summarises one step execution.
type StepResult struct {
	StepName      string
	Status        BatchStatus
	ExitStatus    ExitStatus
	ReadCount     int
	ProcessCount  int
	FilterCount   int
	WriteCount    int
	CommitCount   int
	RollbackCount int
	Err           error
}

// JobExecutionResult is what a job run reports to its caller.
type JobExecutionResult struct {
	ExecutionID string
	JobName     string
	RunID       int64
	Status      BatchStatus
	ExitStatus  ExitStatus
	StepResults []StepResult
}

// NewJobExecutionResult builds the result of je with its steps in execution order.
func NewJobExecutionResult(je *JobExecution) *JobExecutionResult {
	res := &JobExecutionResult{
		ExecutionID: je.ID,
		JobName:     je.JobName,
		RunID:       je.RunID,
		Status:      je.Status,
		ExitStatus:  je.ExitStatus,
		StepResults: make([]StepResult, 0, len(je.StepExecutions)),
	}
	for _, se := range je.StepExecutions {
		res.StepResults = append(res.StepResults, StepResult{
			StepName:      se.StepName,
			Status:        se.Status,
			ExitStatus:    se.ExitStatus,
			ReadCount:     se.ReadCount,
			ProcessCount:  se.ProcessCount,
			FilterCount:   se.FilterCount,
			WriteCount:    se.WriteCount,
			CommitCount:   se.CommitCount,
			RollbackCount: se.RollbackCount,
			Err:           se.LastFailure(),
		})
	}
	return res
}

// StepNames lists the executed steps in order.
func (r *JobExecutionResult) StepNames() []string {
	names := make([]string, len(r.StepResults))
	for i, s := range r.StepResults {
		names[i] = s.StepName
	}
	return names
}

// Step returns the last result recorded for name.
func (r *JobExecutionResult) Step(name string) (StepResult, bool) {
	for i := len(r.StepResults) - 1; i >= 0; i-- {
		if r.StepResults[i].StepName == name {
			return r.StepResults[i], true
		}
	}
	return StepResult{}, false
}
