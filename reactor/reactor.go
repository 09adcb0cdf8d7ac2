package reactor

import (
	"sync"
	"time"

	"github.com/godyy/gutils/container/heap"
	"github.com/pyihe/deferred/internal/gopool"
	"github.com/pyihe/go-pkg/snowflakes"
	"go.uber.org/zap"
)

// TimerId 定时器ID.
type TimerId int64

// TimerIdNone 无效的定时器ID.
const TimerIdNone TimerId = 0

// registration 一条待触发的注册记录.
type registration struct {
	id        TimerId // 定时器ID.
	heapIndex int     // 堆索引.
	expireAt  int64   // 到期时间, 纳秒.
	wakeup    *Wakeup // 唤醒句柄.
}

func (r *registration) HeapLess(other *registration) bool {
	if n := r.expireAt - other.expireAt; n == 0 {
		return r.id < other.id
	} else {
		return n < 0
	}
}

func (r *registration) HeapIndex() int {
	return r.heapIndex
}

func (r *registration) SetHeapIndex(index int) {
	r.heapIndex = index
}

// Options Reactor配置.
type Options struct {
	Node   int64       // 服务节点ID, 用于定时器ID生成
	Logger *zap.Logger // 日志
}

type Option func(*Options)

// WithNode 如果多个节点各跑一个Reactor, 通过节点ID区分ID来源.
func WithNode(node int64) Option {
	return func(options *Options) {
		options.Node = node
	}
}

// WithLogger 指定日志实例, 默认不输出.
func WithLogger(logger *zap.Logger) Option {
	return func(options *Options) {
		options.Logger = logger
	}
}

// Reactor 定时器注册表.
// 持有所有处于pending状态的注册记录, 按到期时间组织为最小堆,
// 由单个循环协程驱动, 到期后调用对应的Wakeup.
//
// 同一个ID同一时刻至多存在一条注册记录: InsertTimer对已存在的ID为
// 覆盖语义, RemoveTimer对不存在的ID为空操作, 两者均可重复调用.
type Reactor struct {
	mtx         sync.Mutex
	sysTimer    *time.Timer               // 系统定时器.
	idGenerator snowflakes.Worker         // 定时器ID生成器.
	regHeap     *heap.Heap[*registration] // 注册记录最小堆.
	regMap      map[TimerId]*registration // 注册记录映射.
	regPool     *sync.Pool                // 注册记录变量池.
	logger      *zap.Logger               // 日志.
	stopped     bool                      // 是否已停止.
	cStopped    chan struct{}             // 已停止信号.
}

// New 构造Reactor并启动驱动循环.
func New(options ...Option) *Reactor {
	opts := &Options{
		Node:   1,
		Logger: zap.NewNop(),
	}
	for _, op := range options {
		op(opts)
	}

	r := &Reactor{
		sysTimer:    time.NewTimer(0),
		idGenerator: snowflakes.NewWorker(opts.Node),
		regHeap:     heap.NewHeap[*registration](),
		regMap:      make(map[TimerId]*registration),
		regPool: &sync.Pool{
			New: func() interface{} {
				return &registration{heapIndex: -1}
			},
		},
		logger:   opts.Logger,
		cStopped: make(chan struct{}),
	}

	gopool.Execute(r.loop)
	r.logger.Debug("reactor started", zap.Int64("node", opts.Node))
	return r
}

// RegisterTimer 分配一个新的定时器ID, 此时尚无注册记录.
func (r *Reactor) RegisterTimer() TimerId {
	return TimerId(r.idGenerator.GetInt64())
}

// InsertTimer 安装id对应的注册记录, 已存在时覆盖到期时间和唤醒句柄.
func (r *Reactor) InsertTimer(id TimerId, when time.Time, w *Wakeup) {
	expireAt := when.UnixNano()

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.stopped {
		return
	}

	reg, exists := r.regMap[id]
	if exists {
		reg.expireAt = expireAt
		reg.wakeup = w
		r.regHeap.Fix(reg.heapIndex)
	} else {
		reg = r.regPool.Get().(*registration)
		reg.id = id
		reg.expireAt = expireAt
		reg.wakeup = w
		r.regHeap.Push(reg)
		r.regMap[id] = reg
	}

	if reg == r.regHeap.Top() {
		r.resetSysTimer(reg.expireAt)
	}
}

// RemoveTimer 移除id对应的注册记录, 不存在时为空操作.
func (r *Reactor) RemoveTimer(id TimerId) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.stopped {
		return
	}

	reg, exists := r.regMap[id]
	if !exists {
		return
	}

	top := reg == r.regHeap.Top()
	r.remReg(reg)

	if top {
		if r.regHeap.Len() == 0 {
			r.stopSysTimer()
		} else {
			r.resetSysTimer(r.regHeap.Top().expireAt)
		}
	}
}

// remReg 从堆和映射中摘除记录并回收变量. 调用方需持有锁.
func (r *Reactor) remReg(reg *registration) {
	r.regHeap.Remove(reg.heapIndex)
	delete(r.regMap, reg.id)
	r.putReg(reg)
}

func (r *Reactor) putReg(reg *registration) {
	*reg = registration{heapIndex: -1}
	r.regPool.Put(reg)
}

// resetSysTimer 重置系统定时器. 调用方需持有锁.
func (r *Reactor) resetSysTimer(expireAt int64) {
	r.stopSysTimer()
	r.sysTimer.Reset(time.Duration(expireAt - time.Now().UnixNano()))
}

// stopSysTimer 停止系统定时器并排空通道. 调用方需持有锁.
func (r *Reactor) stopSysTimer() {
	if !r.sysTimer.Stop() {
		select {
		case <-r.sysTimer.C:
		default:
		}
	}
}

// update 触发所有已到期的注册记录.
func (r *Reactor) update() {
	for {
		now := time.Now().UnixNano()

		r.mtx.Lock()
		if r.stopped {
			r.mtx.Unlock()
			return
		}
		if r.regHeap.Len() == 0 {
			r.mtx.Unlock()
			return
		}
		reg := r.regHeap.Top()
		if reg.expireAt > now {
			r.resetSysTimer(reg.expireAt)
			r.mtx.Unlock()
			return
		}
		w := reg.wakeup
		r.remReg(reg)
		r.mtx.Unlock()

		// 在锁外唤醒, Wake不阻塞.
		if w != nil {
			w.Wake()
		}
	}
}

// loop 主循环逻辑.
func (r *Reactor) loop() {
	for {
		select {
		case <-r.sysTimer.C:
			r.update()
		case <-r.cStopped:
			return
		}
	}
}

// Stop 停止Reactor并丢弃所有pending记录, 可重复调用.
func (r *Reactor) Stop() {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.stopped {
		return
	}

	r.stopSysTimer()
	r.regHeap = nil
	r.regMap = nil
	close(r.cStopped)
	r.stopped = true
	r.logger.Debug("reactor stopped")
}
