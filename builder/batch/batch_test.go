package batch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itoa(i int) string { return strconv.Itoa(i) }

func TestRunIsolatesFailures(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	report := Run(context.Background(), "test", items, Options{Concurrency: 3}, itoa, func(_ context.Context, n int) error {
		switch n {
		case 2:
			return errors.New("boom")
		case 4:
			return Skip("nothing to do")
		}
		return nil
	})

	assert.Equal(t, []string{"1", "3", "5"}, report.Processed())
	require.Len(t, report.Skipped(), 1)
	assert.Equal(t, SkippedItem{Item: "4", Reason: "nothing to do"}, report.Skipped()[0])
	require.Len(t, report.Failures(), 1)
	assert.Equal(t, "2", report.Failures()[0].Item)
	assert.Equal(t, KindExternalProcess, report.Failures()[0].Kind)
	assert.True(t, report.Failed())
	assert.ErrorContains(t, report.Err(), "boom")
}

func TestRunFailFastSkipsRemaining(t *testing.T) {
	var calls atomic.Int32
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	report := Run(context.Background(), "test", items, Options{Concurrency: 1, FailFast: true}, itoa, func(_ context.Context, n int) error {
		calls.Add(1)
		if n == 2 {
			return Errorf("", KindMissingInput, "no alt text")
		}
		return nil
	})

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"1"}, report.Processed())
	require.Len(t, report.Failures(), 1)
	assert.Equal(t, KindMissingInput, report.Failures()[0].Kind)
	assert.Equal(t, "2", report.Failures()[0].Item)
	assert.Len(t, report.Skipped(), 6)
	for _, s := range report.Skipped() {
		assert.Equal(t, "aborted after earlier failure", s.Reason)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := Run(ctx, "test", []int{1, 2}, Options{}, itoa, func(context.Context, int) error {
		t.Error("fn should not run")
		return nil
	})
	assert.Len(t, report.Skipped(), 2)
	assert.Equal(t, "cancelled", report.Skipped()[0].Reason)
	assert.NoError(t, report.Err())
}

func TestWrapKeepsKind(t *testing.T) {
	inner := Errorf("", KindConflict, "same output")
	wrapped := fmt.Errorf("planning: %w", inner)

	err := Wrap("a.mov", KindFilesystem, wrapped)
	assert.Equal(t, KindConflict, KindOf(err))

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "a.mov", be.Item)

	assert.Equal(t, KindFilesystem, KindOf(Wrap("x", KindFilesystem, errors.New("disk"))))
	assert.Nil(t, Wrap("x", KindFilesystem, nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestReportMerge(t *testing.T) {
	a := NewReport("a")
	a.AddProcessed("one")
	b := NewReport("b")
	b.AddFailure("two", KindFilesystem, errors.New("read"))
	b.AddSkipped("three", "empty")

	a.Merge(b)
	assert.Equal(t, "a: 1 processed, 1 skipped, 1 failed", a.String())
}
