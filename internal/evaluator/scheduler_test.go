package evaluator_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ogulcanaydogan/bullfrog/internal/evaluator"
)

func TestRunEvery_RunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32

	done := make(chan struct{})
	go func() {
		evaluator.RunEvery(ctx, 10*time.Millisecond, "test", testLogger(), func(context.Context) error {
			if runs.Add(1) == 2 {
				return errors.New("transient")
			}
			return nil
		})
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunEvery did not stop after cancel")
	}
}

func TestRunEvery_RunsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var runs atomic.Int32

	go evaluator.RunEvery(ctx, time.Hour, "test", testLogger(), func(context.Context) error {
		runs.Add(1)
		return nil
	})

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
}
