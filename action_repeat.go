package deferred

import (
	"context"
	"time"

	"github.com/pyihe/deferred/reactor"
	"github.com/pyihe/deferred/taskq"
)

// Generator 重复动作的生成器.
// 每轮触发后被询问一次: 返回(delay, true)表示delay之后再来一轮,
// 返回(_, false)表示停止.
type Generator func(ctx context.Context) (time.Duration, bool)

// ActionRepeat 按生成器给出的间隔重复执行动作.
// 整个序列复用同一个定时器ID: 每轮用同一ID构造新的Timer,
// 而不是每轮重新分配.
type ActionRepeat struct {
	handle  *taskq.JoinHandle
	r       *reactor.Reactor
	timerId TimerId
	done    bool
}

// Repeat 在默认Runtime的默认队列上调度重复动作.
func Repeat(gen Generator) *ActionRepeat {
	rt := Default()
	a, _ := repeatInto(rt, gen, rt.defaultQueue)
	return a
}

// RepeatInto 在指定队列上调度重复动作.
// q不存在时同步返回ErrQueueNotFound.
func RepeatInto(gen Generator, q taskq.Handle) (*ActionRepeat, error) {
	return repeatInto(Default(), gen, q)
}

func repeatInto(rt *Runtime, gen Generator, q taskq.Handle) (*ActionRepeat, error) {
	id := rt.reactor.RegisterTimer()

	a := &ActionRepeat{
		r:       rt.reactor,
		timerId: id,
	}

	task, err := rt.queues.SpawnInto(q, func(ctx context.Context) {
		for {
			period, again := gen(ctx)
			if !again {
				// 生成器主动停止, 最后一轮的Wait已经摘除了注册记录.
				a.done = true
				return
			}
			t := newTimer(rt.reactor, id, period)
			if _, err := t.Wait(ctx); err != nil {
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}

	a.handle = task.Detach()
	return a, nil
}

// Destroy 摘除复用ID的注册记录(幂等)并向循环任务发出取消请求.
// 正在执行的生成器调用会跑完, 但循环不会再开始新的一轮.
// 不阻塞, 可重复调用.
func (a *ActionRepeat) Destroy() {
	a.r.RemoveTimer(a.timerId)
	a.handle.Cancel()
}

// Cancel 等价于Destroy后Join, 阻塞到循环任务结束.
func (a *ActionRepeat) Cancel(ctx context.Context) error {
	a.Destroy()
	return a.handle.Join(ctx)
}

// Join 阻塞到循环任务结束.
// 生成器主动返回停止时为true; 循环被取消, 或ctx先行到期时为false.
func (a *ActionRepeat) Join(ctx context.Context) bool {
	if err := a.handle.Join(ctx); err != nil {
		return false
	}
	return a.done
}
