package reactor

// Wakeup 唤醒能力: 定时器注册在案期间由reactor持有,
// 到期时调用Wake唤醒挂起的等待方.
// 缓冲为1, Wake不阻塞, 同一个Wakeup可以跨多次重注册复用.
type Wakeup struct {
	c chan struct{}
}

func NewWakeup() *Wakeup {
	return &Wakeup{c: make(chan struct{}, 1)}
}

// Wake 唤醒等待方, 已有未消费的唤醒信号时直接丢弃.
func (w *Wakeup) Wake() {
	select {
	case w.c <- struct{}{}:
	default:
	}
}

// Done 等待方挂起时监听的通道.
func (w *Wakeup) Done() <-chan struct{} {
	return w.c
}
