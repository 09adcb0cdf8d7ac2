package taskq

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/pyihe/go-pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrQueueNotFound 目标队列不存在或已被移除.
	ErrQueueNotFound = errors.New("taskq: queue not found")
)

// Handle 任务队列句柄, 零值无效.
type Handle struct {
	id uint64
}

// Valid 句柄是否指向某个曾经创建过的队列.
func (h Handle) Valid() bool {
	return h.id != 0
}

// queue 一条具名的执行通道, 由独立的协程池承载.
type queue struct {
	name string
	pool *ants.Pool
}

// Options Registry配置.
type Options struct {
	Logger *zap.Logger // 日志
}

type Option func(*Options)

// WithLogger 指定日志实例, 默认不输出.
func WithLogger(logger *zap.Logger) Option {
	return func(options *Options) {
		options.Logger = logger
	}
}

// Registry 具名任务队列注册表.
// 每个队列由一个独立的ants协程池承载, 队列的workers数量即该
// 队列上可同时执行的任务上限.
type Registry struct {
	mu        sync.RWMutex
	queues    map[uint64]*queue
	tasks     map[uint64]context.CancelFunc // 在跑任务的取消函数
	idGen     uint64
	taskIdGen uint64
	logger    *zap.Logger
	closed    bool
}

// NewRegistry 构造Registry.
func NewRegistry(options ...Option) *Registry {
	opts := &Options{
		Logger: zap.NewNop(),
	}
	for _, op := range options {
		op(opts)
	}
	return &Registry{
		queues: make(map[uint64]*queue),
		tasks:  make(map[uint64]context.CancelFunc),
		logger: opts.Logger,
	}
}

// CreateQueue 创建具名队列, workers<=0时使用默认池容量.
func (r *Registry) CreateQueue(name string, workers int) (Handle, error) {
	if workers <= 0 {
		workers = ants.DefaultAntsPoolSize
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return Handle{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		pool.Release()
		return Handle{}, ErrQueueNotFound
	}

	id := atomic.AddUint64(&r.idGen, 1)
	r.queues[id] = &queue{
		name: name,
		pool: pool,
	}
	r.logger.Debug("queue created", zap.String("name", name), zap.Int("workers", workers))
	return Handle{id: id}, nil
}

// RemoveQueue 移除队列并释放其协程池, 队列上已在执行的任务不受影响.
func (r *Registry) RemoveQueue(h Handle) {
	r.mu.Lock()
	q, exists := r.queues[h.id]
	if exists {
		delete(r.queues, h.id)
	}
	r.mu.Unlock()

	if exists {
		q.pool.Release()
		r.logger.Debug("queue removed", zap.String("name", q.name))
	}
}

// SpawnInto 将fn作为一个任务调度到h指向的队列.
// 队列不存在时同步返回ErrQueueNotFound, 不会延迟到任务执行时.
// fn收到的ctx即任务的协作取消信号: 取消是请求而非强制,
// 只在fn主动观察ctx的挂起点生效.
func (r *Registry) SpawnInto(h Handle, fn func(ctx context.Context)) (*Task, error) {
	r.mu.RLock()
	q, exists := r.queues[h.id]
	r.mu.RUnlock()

	if !exists {
		return nil, ErrQueueNotFound
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// 登记取消函数, Close时对所有在跑任务发协作取消.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		return nil, ErrQueueNotFound
	}
	r.taskIdGen++
	tid := r.taskIdGen
	r.tasks[tid] = cancel
	r.mu.Unlock()

	err := q.pool.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("task panic", zap.String("queue", q.name), zap.Any("panic", p))
			}
			r.mu.Lock()
			delete(r.tasks, tid)
			r.mu.Unlock()
			close(t.done)
		}()
		fn(ctx)
	})
	if err != nil {
		// 队列在查到句柄之后被并发移除.
		r.mu.Lock()
		delete(r.tasks, tid)
		r.mu.Unlock()
		cancel()
		return nil, ErrQueueNotFound
	}

	return t, nil
}

// Close 移除所有队列并释放资源, 可重复调用.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	// 先取消所有在跑任务, 挂起中的等待方据此返回, 不会被永久搁置.
	for tid, cancel := range r.tasks {
		cancel()
		delete(r.tasks, tid)
	}
	for id, q := range r.queues {
		q.pool.Release()
		delete(r.queues, id)
	}
	r.logger.Debug("registry closed")
}
