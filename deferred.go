package deferred

import (
	"sync"

	"github.com/pyihe/deferred/reactor"
	"github.com/pyihe/deferred/taskq"
)

// TimerId 定时器ID, 由reactor分配, 在一次注册的生命周期内唯一.
type TimerId = reactor.TimerId

var (
	// ErrQueueNotFound 目标队列不存在, 由各调度构造函数同步返回.
	ErrQueueNotFound = taskq.ErrQueueNotFound
)

// Runtime 把一个reactor和一组任务队列捆绑为一个运行时.
// Timer负责单个注册记录的生命周期, ActionOnce/ActionRepeat
// 负责在队列任务里驱动Timer并执行调用方逻辑.
type Runtime struct {
	reactor      *reactor.Reactor
	queues       *taskq.Registry
	defaultQueue taskq.Handle
}

// NewRuntime 构造Runtime, 自带一条默认队列.
func NewRuntime(options ...Option) *Runtime {
	opts := &Options{
		Node: 1,
	}
	for _, op := range options {
		op(opts)
	}

	rOpts := []reactor.Option{reactor.WithNode(opts.Node)}
	qOpts := []taskq.Option(nil)
	if opts.Logger != nil {
		rOpts = append(rOpts, reactor.WithLogger(opts.Logger))
		qOpts = append(qOpts, taskq.WithLogger(opts.Logger))
	}

	rt := &Runtime{
		reactor: reactor.New(rOpts...),
		queues:  taskq.NewRegistry(qOpts...),
	}
	// 默认队列在注册表刚创建时必然存在.
	rt.defaultQueue, _ = rt.queues.CreateQueue("default", opts.DefaultQueueWorkers)
	return rt
}

var (
	defaultOnce    sync.Once
	defaultRuntime *Runtime
)

// Default 返回进程级默认Runtime, 首次调用时创建.
func Default() *Runtime {
	defaultOnce.Do(func() {
		defaultRuntime = NewRuntime()
	})
	return defaultRuntime
}

// Reactor 运行时使用的reactor.
func (rt *Runtime) Reactor() *reactor.Reactor {
	return rt.reactor
}

// Queues 运行时使用的队列注册表.
func (rt *Runtime) Queues() *taskq.Registry {
	return rt.queues
}

// DefaultQueue 默认队列句柄.
func (rt *Runtime) DefaultQueue() taskq.Handle {
	return rt.defaultQueue
}

// CreateQueue 创建具名队列.
func (rt *Runtime) CreateQueue(name string, workers int) (taskq.Handle, error) {
	return rt.queues.CreateQueue(name, workers)
}

// Stop 停止运行时: 丢弃所有pending定时器注册并释放队列资源.
func (rt *Runtime) Stop() {
	rt.reactor.Stop()
	rt.queues.Close()
}
