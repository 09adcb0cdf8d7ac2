package taskq

import (
	"context"
)

// Task 刚被调度进队列的任务.
// 任务的生命周期独立于调度它的调用栈, 通过Detach拿到
// 与词法作用域解耦的JoinHandle之后, Task本身即可丢弃.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Detach 产生一个独立于本次调度调用的JoinHandle.
func (t *Task) Detach() *JoinHandle {
	return &JoinHandle{
		cancel: t.cancel,
		done:   t.done,
	}
}

// JoinHandle 已派生任务的句柄, 任意持有方都可以等待或取消任务.
type JoinHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel 发出协作取消请求, 不阻塞也不保证中断:
// 任务只在自身观察ctx的挂起点响应, 正在执行的同步代码不受影响.
// 可重复调用.
func (h *JoinHandle) Cancel() {
	h.cancel()
}

// Done 任务结束信号.
func (h *JoinHandle) Done() <-chan struct{} {
	return h.done
}

// Join 阻塞直到任务结束, ctx先行到期时返回其错误.
func (h *JoinHandle) Join(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
