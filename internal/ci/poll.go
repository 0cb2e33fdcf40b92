package ci

import (
	"context"
	"fmt"
	"time"

	gchlerrors "gchl.dev/gchl/internal/errors"
)

// Sleeper waits between two polls of the CI server
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PollInterval converts a poll timeout in seconds; negative values poll
// without waiting
func PollInterval(seconds int) time.Duration {
	if seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// Poller polls a Platform at a fixed interval
type Poller struct {
	Platform Platform
	Interval time.Duration
	Sleep    Sleeper
}

// NewPoller creates a poller that sleeps for interval between polls
func NewPoller(platform Platform, interval time.Duration) *Poller {
	return &Poller{Platform: platform, Interval: interval, Sleep: Sleep}
}

// WaitPipeline polls until the pipeline reaches a final status. report is
// called with the pipeline and its jobs after every refresh.
func (p *Poller) WaitPipeline(ctx context.Context, pipeline *Pipeline, report func(*Pipeline, []Job)) (*Pipeline, error) {
	for !pipeline.Status.PipelineFinal() {
		if err := p.Sleep(ctx, p.Interval); err != nil {
			return pipeline, err
		}
		refreshed, err := p.Platform.GetPipeline(ctx, pipeline.ID)
		if err != nil {
			return pipeline, err
		}
		pipeline = refreshed

		jobs, err := p.Platform.ListPipelineJobs(ctx, pipeline.ID)
		if err != nil {
			return pipeline, err
		}
		if report != nil {
			report(pipeline, jobs)
		}
	}
	return pipeline, nil
}

// FindJob returns the only job of jobs named name, or nil when there is none
func FindJob(jobs []Job, name string) (*Job, error) {
	var found *Job
	for i := range jobs {
		if jobs[i].Name != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: more than one job in the pipeline has name %q", gchlerrors.ErrAmbiguousJob, name)
		}
		found = &jobs[i]
	}
	return found, nil
}
