package deferred

import (
	"context"
	"sync"
	"time"

	"github.com/pyihe/deferred/reactor"
)

// timerState 定时器共享可变状态.
// Timer独占持有它, ActionOnce会额外持有同一份引用:
// 在Timer值已经移交给派生任务之后, 仅用id做清理、改when做重瞄,
// 绝不会在Timer完成后借它复活一个定时器.
//
// 不变量: wakeup非nil当且仅当id在reactor中存在注册记录.
// 各协程可能并行访问, 所有字段读写都在mu保护下进行.
type timerState struct {
	mu     sync.Mutex
	id     TimerId         // 定时器ID, 创建后不变.
	wakeup *reactor.Wakeup // 挂起等待期间持有, 否则为nil.
	when   time.Time       // 到期时间.
}

// reset 重设到期时间.
// 已有注册记录时先移除再按新when重新安装, 保证同一ID不会
// 同时存在两条注册; 唤醒句柄原样保留, 被唤醒的仍是原等待方.
func (s *timerState) reset(r *reactor.Reactor, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wakeup != nil {
		r.RemoveTimer(s.id)
	}

	s.when = time.Now().Add(d)

	if s.wakeup != nil {
		r.InsertTimer(s.id, s.when, s.wakeup)
	}
}

// Timer 单发定时器.
// Wait返回后(或Stop之后)reactor中不再留有它的注册记录.
type Timer struct {
	r     *reactor.Reactor
	state *timerState
}

// NewTimer 创建d之后到期的定时器, ID从默认Runtime的reactor新分配.
func NewTimer(d time.Duration) *Timer {
	r := Default().reactor
	return newTimer(r, r.RegisterTimer(), d)
}

// newTimer 用指定ID构造定时器, 供ActionRepeat跨轮次复用同一ID.
func newTimer(r *reactor.Reactor, id TimerId, d time.Duration) *Timer {
	return &Timer{
		r: r,
		state: &timerState{
			id:   id,
			when: time.Now().Add(d),
		},
	}
}

// Reset 把定时器重设为d之后到期.
// 与新建定时器不同, Reset不会丢失已经挂起的等待方:
// 等待方会按新的到期时间被唤醒.
func (t *Timer) Reset(d time.Duration) {
	t.state.reset(t.r, d)
}

// Wait 阻塞到定时器到期, 返回到期时间.
// ctx是协作取消信号, 先行取消时返回其错误并释放注册记录.
// 每轮循环对应一次poll: 已到期则摘除注册并完成,
// 否则(覆盖式)安装注册记录后挂起.
func (t *Timer) Wait(ctx context.Context) (time.Time, error) {
	s := t.state
	for {
		// 取消先于本轮poll生效, 与挂起点观察到取消等价.
		if err := ctx.Err(); err != nil {
			t.Stop()
			return time.Time{}, err
		}
		s.mu.Lock()
		when := s.when
		if !time.Now().Before(when) {
			// 到期, 摘除注册记录(幂等, 可能早已不存在).
			t.r.RemoveTimer(s.id)
			s.wakeup = nil
			s.mu.Unlock()
			return when, nil
		}
		if s.wakeup == nil {
			s.wakeup = reactor.NewWakeup()
		}
		w := s.wakeup
		t.r.InsertTimer(s.id, when, w)
		s.mu.Unlock()

		select {
		case <-w.Done():
			// 被唤醒: 可能是到期, 也可能是Reset后的旧信号, 回到循环重查.
		case <-ctx.Done():
			t.Stop()
			return time.Time{}, ctx.Err()
		}
	}
}

// Stop 释放定时器持有的注册记录, 未注册时为空操作, 可重复调用.
func (t *Timer) Stop() {
	s := t.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.wakeup != nil {
		t.r.RemoveTimer(s.id)
		s.wakeup = nil
	}
}
