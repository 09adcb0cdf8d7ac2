package deferred

import "go.uber.org/zap"

type Options struct {
	Node                int64       // 服务节点ID
	DefaultQueueWorkers int         // 默认队列的worker数量
	Logger              *zap.Logger // 日志
}

type Option func(*Options)

// WithNode 如果多个节点各跑一个Runtime, 为了定时器ID不冲突,
// 通过服务节点ID来区分. 最多支持1024个节点: [0, 1023]
func WithNode(node int64) Option {
	return func(options *Options) {
		options.Node = node
	}
}

// WithDefaultQueueWorkers 默认队列可同时执行的任务数量上限.
// 任务在等待定时器期间会占用一个worker, 如果同时调度的
// 延时任务很多, 尽量将上限设置大一点.
func WithDefaultQueueWorkers(workers int) Option {
	return func(options *Options) {
		options.DefaultQueueWorkers = workers
	}
}

// WithLogger 指定日志实例, 默认不输出.
func WithLogger(logger *zap.Logger) Option {
	return func(options *Options) {
		options.Logger = logger
	}
}
