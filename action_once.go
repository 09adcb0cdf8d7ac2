package deferred

import (
	"context"
	"time"

	"github.com/pyihe/deferred/reactor"
	"github.com/pyihe/deferred/taskq"
)

// ActionOnce 在指定延时或时刻之后执行一次action, 调度方不被阻塞.
//
// 裸Timer的Wait会一直占着当前任务, 实际使用中很少是想要的效果.
// ActionOnce把Timer连同action一起派生成队列任务, 自身只是留在
// 调度方手里的取消/检视句柄: 真正的等待和执行都发生在派生任务里.
//
// 取消是协作式的: Destroy之后已经越过定时器等待、正在执行的
// action不会被强行打断, 取消请求只在action自身观察ctx的挂起点生效.
type ActionOnce[T any] struct {
	handle *taskq.JoinHandle
	state  *timerState
	r      *reactor.Reactor
	out    T
	ok     bool
}

// ScheduleIn 在默认Runtime的默认队列上调度delay之后执行的action.
func ScheduleIn[T any](delay time.Duration, action func(ctx context.Context) T) *ActionOnce[T] {
	rt := Default()
	a, _ := scheduleInto(rt, delay, action, rt.defaultQueue)
	return a
}

// ScheduleInto 在指定队列上调度delay之后执行的action.
// q不存在时同步返回ErrQueueNotFound.
func ScheduleInto[T any](delay time.Duration, action func(ctx context.Context) T, q taskq.Handle) (*ActionOnce[T], error) {
	return scheduleInto(Default(), delay, action, q)
}

// ScheduleAt 在默认队列上调度when时刻执行的action, 过去的时刻视为立即.
func ScheduleAt[T any](when time.Time, action func(ctx context.Context) T) *ActionOnce[T] {
	return ScheduleIn(untilOrZero(when), action)
}

// ScheduleAtInto 在指定队列上调度when时刻执行的action.
func ScheduleAtInto[T any](when time.Time, action func(ctx context.Context) T, q taskq.Handle) (*ActionOnce[T], error) {
	return ScheduleInto(untilOrZero(when), action, q)
}

func scheduleInto[T any](rt *Runtime, delay time.Duration, action func(ctx context.Context) T, q taskq.Handle) (*ActionOnce[T], error) {
	id := rt.reactor.RegisterTimer()
	t := newTimer(rt.reactor, id, delay)

	a := &ActionOnce[T]{
		state: t.state,
		r:     rt.reactor,
	}

	task, err := rt.queues.SpawnInto(q, func(ctx context.Context) {
		if _, err := t.Wait(ctx); err != nil {
			// 定时器等待期间被取消, 不产生结果.
			return
		}
		a.out = action(ctx)
		a.ok = true
	})
	if err != nil {
		return nil, err
	}

	a.handle = task.Detach()
	return a, nil
}

// Destroy 摘除定时器的注册记录(幂等)并向派生任务发出取消请求.
// 不阻塞, 可重复调用. 已经开始执行的action会继续跑完,
// 除非它自己在挂起点观察到了取消.
func (a *ActionOnce[T]) Destroy() {
	a.r.RemoveTimer(a.state.id)
	a.handle.Cancel()
}

// Cancel 等价于Destroy后Join, 阻塞到派生任务结束.
// ctx先行到期时返回其错误.
func (a *ActionOnce[T]) Cancel(ctx context.Context) error {
	a.Destroy()
	return a.handle.Join(ctx)
}

// Join 阻塞到派生任务结束.
// action正常执行完时返回其结果和true; 任务在产生结果之前被
// 取消, 或ctx先行到期时, 返回零值和false.
func (a *ActionOnce[T]) Join(ctx context.Context) (T, bool) {
	if err := a.handle.Join(ctx); err != nil {
		var zero T
		return zero, false
	}
	return a.out, a.ok
}

// RearmIn 把定时器重瞄为d之后到期, 重注册逻辑与Timer.Reset一致.
// 只在派生任务仍挂起在最初的定时器等待上时有观察效果:
// 定时器一旦触发, 共享状态就不再被任何等待方poll,
// 此后的重瞄只是改动无人关注的状态, 不影响action的时机.
func (a *ActionOnce[T]) RearmIn(d time.Duration) {
	a.state.reset(a.r, d)
}

// RearmAt 把定时器重瞄为when时刻到期, 过去的时刻视为立即.
func (a *ActionOnce[T]) RearmAt(when time.Time) {
	a.RearmIn(untilOrZero(when))
}
