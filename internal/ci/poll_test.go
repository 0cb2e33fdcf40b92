package ci_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gchl.dev/gchl/internal/ci"
	gchlerrors "gchl.dev/gchl/internal/errors"
	"gchl.dev/gchl/testhelpers"
)

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func TestStatus(t *testing.T) {
	for _, s := range []ci.Status{ci.StatusSuccess, ci.StatusFailed, ci.StatusCanceled, ci.StatusSkipped} {
		require.True(t, s.PipelineFinal(), s)
		require.True(t, s.JobFinal(), s)
	}
	require.False(t, ci.StatusManual.PipelineFinal())
	require.True(t, ci.StatusManual.JobFinal())
	for _, s := range []ci.Status{ci.StatusCreated, ci.StatusPending, ci.StatusRunning, "unknown"} {
		require.False(t, s.PipelineFinal(), s)
		require.False(t, s.JobFinal(), s)
	}
	require.True(t, ci.StatusSuccess.Success())
}

func TestPollInterval(t *testing.T) {
	require.Equal(t, time.Duration(0), ci.PollInterval(-5))
	require.Equal(t, time.Duration(0), ci.PollInterval(0))
	require.Equal(t, 10*time.Second, ci.PollInterval(10))
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, ci.Sleep(ctx, time.Hour), context.Canceled)
	require.NoError(t, ci.Sleep(context.Background(), 0))
}

func TestWaitPipeline(t *testing.T) {
	ctx := context.Background()
	config := testhelpers.NewMockGitLabServerConfig()
	config.AddPipeline(&testhelpers.MockPipeline{
		ID:       3,
		Statuses: []string{"running", "running", "failed"},
		Jobs:     []*testhelpers.MockJob{{ID: 1, Name: "build", Statuses: []string{"failed"}}},
	})
	gl := newGitLab(t, config, "token")

	poller := ci.NewPoller(gl, time.Second)
	var sleeps []time.Duration
	poller.Sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	rounds := 0
	final, err := poller.WaitPipeline(ctx, &ci.Pipeline{ID: 3, Status: ci.StatusCreated}, func(p *ci.Pipeline, jobs []ci.Job) {
		rounds++
		require.Len(t, jobs, 1)
	})
	require.NoError(t, err)
	require.Equal(t, ci.StatusFailed, final.Status)
	require.Equal(t, 3, rounds)
	require.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, sleeps)

	t.Run("final pipelines are not polled", func(t *testing.T) {
		before := len(config.RecordedRequests())
		p, err := ci.NewPoller(gl, 0).WaitPipeline(ctx, &ci.Pipeline{ID: 3, Status: ci.StatusSuccess}, nil)
		require.NoError(t, err)
		require.Equal(t, ci.StatusSuccess, p.Status)
		require.Len(t, config.RecordedRequests(), before)
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		poller := ci.NewPoller(gl, time.Second)
		poller.Sleep = noSleep
		_, err := poller.WaitPipeline(cctx, &ci.Pipeline{ID: 3, Status: ci.StatusRunning}, nil)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestFindJob(t *testing.T) {
	jobs := []ci.Job{{ID: 1, Name: "build"}, {ID: 2, Name: "test"}, {ID: 3, Name: "test"}}

	job, err := ci.FindJob(jobs, "build")
	require.NoError(t, err)
	require.Equal(t, 1, job.ID)

	job, err = ci.FindJob(jobs, "deploy")
	require.NoError(t, err)
	require.Nil(t, job)

	_, err = ci.FindJob(jobs, "test")
	require.ErrorIs(t, err, gchlerrors.ErrAmbiguousJob)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed")
}

func TestTraceFollower(t *testing.T) {
	ctx := context.Background()
	config := testhelpers.NewMockGitLabServerConfig()
	config.AddPipeline(&testhelpers.MockPipeline{ID: 1, Jobs: []*testhelpers.MockJob{{
		ID:     5,
		Name:   "build",
		Traces: []string{"", "step 1\n", "step 1\n", "step 1\nstep 2\n"},
	}}})
	gl := newGitLab(t, config, "token")

	var out bytes.Buffer
	follower := ci.NewTraceFollower(gl, 5, &out)
	for range 5 {
		require.NoError(t, follower.Poll(ctx))
	}
	require.Equal(t, "step 1\nstep 2\n", out.String())
	require.Equal(t, len("step 1\nstep 2\n"), follower.Reported())

	t.Run("write failures are reported", func(t *testing.T) {
		require.Error(t, ci.NewTraceFollower(gl, 5, failingWriter{}).Poll(ctx))
	})
}
