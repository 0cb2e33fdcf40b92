package ci

import (
	"context"
	"fmt"
	"io"
)

// TraceFollower copies the part of a job trace not written yet. The server
// only hands out complete traces, so every poll fetches the whole log and
// skips what was already reported.
type TraceFollower struct {
	platform Platform
	jobID    int
	out      io.Writer
	reported int
}

// NewTraceFollower creates a follower for job writing to out
func NewTraceFollower(platform Platform, jobID int, out io.Writer) *TraceFollower {
	return &TraceFollower{platform: platform, jobID: jobID, out: out}
}

// Reported returns the number of trace bytes written so far
func (f *TraceFollower) Reported() int {
	return f.reported
}

// Poll fetches the trace and writes its new tail
func (f *TraceFollower) Poll(ctx context.Context) error {
	trace, err := f.platform.JobTrace(ctx, f.jobID)
	if err != nil {
		return err
	}
	if len(trace) <= f.reported {
		return nil
	}
	n, err := f.out.Write(trace[f.reported:])
	f.reported += n
	if err != nil {
		return fmt.Errorf("failed to write trace of job %d: %w", f.jobID, err)
	}
	return nil
}
