package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/oolongbench/oolong-pairs/internal/models"
	"github.com/oolongbench/oolong-pairs/internal/taskstate"
	"github.com/stretchr/testify/require"
)

// fakeLauncher stands in for a real session: it claims the pending record
// and finishes it the way the session-side hooks would.
type fakeLauncher struct {
	store     *taskstate.Store
	answer    string
	score     float64
	tokens    int
	fail      string
	failEmpty bool
	noop      bool
}

func (l *fakeLauncher) Launch(ctx context.Context, prompt string) error {
	if l.noop {
		return nil
	}
	rec, err := l.store.Begin()
	if err != nil {
		return err
	}
	if l.fail != "" || l.failEmpty {
		return l.store.Fail(rec.Epoch, l.fail)
	}
	return l.store.Complete(rec.Epoch, l.answer, l.score, l.tokens)
}

func TestInteractiveExecuteCompletes(t *testing.T) {
	store, err := taskstate.NewStore(t.TempDir())
	require.NoError(t, err)

	adapter := NewTruncationAdapter(TruncationArgs{
		Mode: models.ModeInteractive,
		Deps: Deps{
			Store:    store,
			Launcher: &fakeLauncher{store: store, answer: "location", score: 1.0, tokens: 77},
		},
	})

	res := adapter.Execute(context.Background(), sampleTask(), "run-1")
	require.Empty(t, res.Error)
	require.Equal(t, "location", res.ActualAnswer)
	require.Equal(t, 1.0, res.Score)
	require.Equal(t, 77, res.TokensUsed)

	// The slot is cleared for the next task.
	_, err = store.Read()
	require.ErrorIs(t, err, taskstate.ErrNoRecord)
}

func TestInteractiveExecuteSessionFailure(t *testing.T) {
	store, err := taskstate.NewStore(t.TempDir())
	require.NoError(t, err)

	adapter := NewTruncationAdapter(TruncationArgs{
		Mode: models.ModeInteractive,
		Deps: Deps{
			Store:    store,
			Launcher: &fakeLauncher{store: store, fail: "model refused"},
		},
	})

	res := adapter.Execute(context.Background(), sampleTask(), "run-1")
	require.Equal(t, "model refused", res.Error)
	require.Equal(t, 0.0, res.Score)
	require.True(t, res.Failed())
}

func TestInteractiveExecuteFailureWithoutMessage(t *testing.T) {
	store, err := taskstate.NewStore(t.TempDir())
	require.NoError(t, err)

	adapter := NewTruncationAdapter(TruncationArgs{
		Mode: models.ModeInteractive,
		Deps: Deps{
			Store:    store,
			Launcher: &fakeLauncher{store: store, failEmpty: true},
		},
	})

	// A failed record with a blank error must still land as a failure.
	res := adapter.Execute(context.Background(), sampleTask(), "run-1")
	require.Equal(t, "session reported failure", res.Error)
	require.Equal(t, 0.0, res.Score)
	require.True(t, res.Failed())
}

func TestInteractiveExecuteTimesOut(t *testing.T) {
	store, err := taskstate.NewStore(t.TempDir())
	require.NoError(t, err)

	wait := 30 * time.Millisecond
	adapter := NewTruncationAdapter(TruncationArgs{
		Mode: models.ModeInteractive,
		Deps: Deps{
			Store:           store,
			Launcher:        &fakeLauncher{store: store, noop: true},
			InteractiveWait: wait,
		},
	})

	res := adapter.Execute(context.Background(), sampleTask(), "run-1")
	require.Equal(t, "Task timed out", res.Error)
	require.Equal(t, 0.0, res.Score)
	require.Equal(t, float64(wait.Milliseconds()), res.LatencyMS)
}
