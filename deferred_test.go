package deferred

import (
	"context"
	"testing"
	"time"
)

func TestRuntimeStopWakesSuspendedTask(t *testing.T) {
	rt := NewRuntime()

	a, err := scheduleInto(rt, time.Second, func(ctx context.Context) int {
		return 1
	}, rt.defaultQueue)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	// 等派生任务挂起在定时器等待上
	time.Sleep(20 * time.Millisecond)
	rt.Stop()

	select {
	case <-a.handle.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop后挂起的任务未被唤醒")
	}
	if _, ok := a.Join(context.Background()); ok {
		t.Fatalf("被停止的运行时不应产出结果")
	}
}

func TestRuntimeStopIdempotent(t *testing.T) {
	rt := NewRuntime()
	rt.Stop()
	rt.Stop()
}
