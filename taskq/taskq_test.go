package taskq

import (
	"context"
	"testing"
	"time"
)

func TestSpawnIntoRuns(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	h, err := r.CreateQueue("test", 4)
	if err != nil {
		t.Fatalf("create queue: %v", err)
	}

	out := make(chan int, 1)
	task, err := r.SpawnInto(h, func(ctx context.Context) {
		out <- 42
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	handle := task.Detach()
	if err = handle.Join(context.Background()); err != nil {
		t.Fatalf("join: %v", err)
	}
	if v := <-out; v != 42 {
		t.Fatalf("v = %d", v)
	}
}

func TestSpawnIntoQueueNotFound(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	if _, err := r.SpawnInto(Handle{}, func(ctx context.Context) {}); err != ErrQueueNotFound {
		t.Fatalf("err = %v", err)
	}

	h, _ := r.CreateQueue("gone", 1)
	r.RemoveQueue(h)
	if _, err := r.SpawnInto(h, func(ctx context.Context) {}); err != ErrQueueNotFound {
		t.Fatalf("err = %v", err)
	}
}

func TestCancelCooperative(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	h, _ := r.CreateQueue("test", 1)
	observed := make(chan struct{})
	task, err := r.SpawnInto(h, func(ctx context.Context) {
		<-ctx.Done()
		close(observed)
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}

	handle := task.Detach()
	handle.Cancel()
	handle.Cancel() // 可重复调用

	if err = handle.Join(context.Background()); err != nil {
		t.Fatalf("join: %v", err)
	}
	select {
	case <-observed:
	default:
		t.Fatalf("任务未观察到取消")
	}
}

func TestJoinContextExpired(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	h, _ := r.CreateQueue("test", 1)
	task, _ := r.SpawnInto(h, func(ctx context.Context) {
		time.Sleep(100 * time.Millisecond)
	})
	handle := task.Detach()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := handle.Join(ctx); err == nil {
		t.Fatalf("join应返回ctx错误")
	}
	// 任务本身不受影响
	if err := handle.Join(context.Background()); err != nil {
		t.Fatalf("join: %v", err)
	}
}

func TestCloseCancelsRunningTasks(t *testing.T) {
	r := NewRegistry()

	h, _ := r.CreateQueue("test", 1)
	task, err := r.SpawnInto(h, func(ctx context.Context) {
		<-ctx.Done()
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	handle := task.Detach()

	// Close对在跑任务发协作取消, 挂起的任务不应被永久搁置
	r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err = handle.Join(ctx); err != nil {
		t.Fatalf("close未取消在跑任务: %v", err)
	}

	// 关闭后不再接受新任务
	if _, err = r.SpawnInto(h, func(ctx context.Context) {}); err != ErrQueueNotFound {
		t.Fatalf("err = %v", err)
	}
}

func TestPanicRecovered(t *testing.T) {
	r := NewRegistry()
	defer r.Close()

	h, _ := r.CreateQueue("test", 1)
	task, _ := r.SpawnInto(h, func(ctx context.Context) {
		panic("boom")
	})
	if err := task.Detach().Join(context.Background()); err != nil {
		t.Fatalf("join: %v", err)
	}

	// 队列在panic之后仍然可用
	out := make(chan struct{})
	task, err := r.SpawnInto(h, func(ctx context.Context) {
		close(out)
	})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	task.Detach().Join(context.Background())
	select {
	case <-out:
	default:
		t.Fatalf("panic后队列不可用")
	}
}
