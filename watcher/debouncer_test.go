package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInterval = 50 * time.Millisecond

func receiveBatch(t *testing.T, events <-chan []DebouncedEvent, timeout time.Duration) []DebouncedEvent {
	t.Helper()
	select {
	case batch := <-events:
		return batch
	case <-time.After(timeout):
		t.Fatal("timed out waiting for debouncer batch")
		return nil
	}
}

func Test_Debouncer_SingleEvent(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Stop()

	d.Add("reports/q1.pdf", OpWrite)

	batch := receiveBatch(t, d.Output(), 500*time.Millisecond)
	require.Len(t, batch, 1)
	assert.Equal(t, DebouncedEvent{Path: "reports/q1.pdf", Op: OpWrite}, batch[0])
}

func Test_Debouncer_EventCollapsing(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Stop()

	// A save arrives as create + write + write; only the latest op survives.
	d.Add("budget.xlsx", OpCreate)
	d.Add("budget.xlsx", OpWrite)
	d.Add("budget.xlsx", OpWrite)

	batch := receiveBatch(t, d.Output(), 500*time.Millisecond)
	require.Len(t, batch, 1)
	assert.Equal(t, OpWrite, batch[0].Op)
}

func Test_Debouncer_BatchSortedByPath(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Stop()

	d.Add("welcome.txt", OpWrite)
	d.Add("letters/memo.doc", OpCreate)
	d.Add("Archive.rtf", OpRemove)

	batch := receiveBatch(t, d.Output(), 500*time.Millisecond)
	require.Len(t, batch, 3)
	assert.Equal(t, "Archive.rtf", batch[0].Path)
	assert.Equal(t, "letters/memo.doc", batch[1].Path)
	assert.Equal(t, "welcome.txt", batch[2].Path)
}

func Test_Debouncer_TimerReset(t *testing.T) {
	d := NewDebouncer(testInterval)
	defer d.Stop()

	d.Add("a.txt", OpWrite)
	time.Sleep(testInterval / 2)
	d.Add("b.txt", OpWrite)

	batch := receiveBatch(t, d.Output(), 500*time.Millisecond)
	assert.Len(t, batch, 2, "both events should arrive in a single batch")
}

func Test_Debouncer_StopDropsPending(t *testing.T) {
	d := NewDebouncer(testInterval)

	d.Add("a.txt", OpWrite)
	d.Stop()
	d.Add("b.txt", OpWrite)
	d.Stop()

	select {
	case batch := <-d.Output():
		t.Fatalf("unexpected batch after Stop: %v", batch)
	case <-time.After(4 * testInterval):
	}
}

func Test_EventOp_String(t *testing.T) {
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "write", OpWrite.String())
	assert.Equal(t, "remove", OpRemove.String())
	assert.Equal(t, "rename", OpRename.String())
	assert.Equal(t, "unknown", EventOp(42).String())
}
