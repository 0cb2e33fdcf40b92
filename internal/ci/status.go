package ci

import "slices"

// Status is a pipeline or job status as reported by the CI server
type Status string

const (
	StatusCreated            Status = "created"
	StatusWaitingForResource Status = "waiting_for_resource"
	StatusPreparing          Status = "preparing"
	StatusPending            Status = "pending"
	StatusRunning            Status = "running"
	StatusScheduled          Status = "scheduled"
	StatusSuccess            Status = "success"
	StatusFailed             Status = "failed"
	StatusCanceled           Status = "canceled"
	StatusSkipped            Status = "skipped"
	StatusManual             Status = "manual"
)

// PipelineFinalStatuses are the statuses a pipeline never leaves
var PipelineFinalStatuses = []Status{StatusSuccess, StatusFailed, StatusCanceled, StatusSkipped}

// JobFinalStatuses are the statuses after which a job's trace stops growing.
// A manual job waits for a human, which an unattended caller can't be.
var JobFinalStatuses = []Status{StatusSuccess, StatusFailed, StatusCanceled, StatusSkipped, StatusManual}

// PipelineFinal reports whether a pipeline with this status is done
func (s Status) PipelineFinal() bool {
	return slices.Contains(PipelineFinalStatuses, s)
}

// JobFinal reports whether a job with this status is done
func (s Status) JobFinal() bool {
	return slices.Contains(JobFinalStatuses, s)
}

// Success reports whether the status is success
func (s Status) Success() bool {
	return s == StatusSuccess
}

func (s Status) String() string {
	return string(s)
}
