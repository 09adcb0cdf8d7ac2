package deferred

import "time"

// untilOrZero 返回距when的时长, 已经过去的时刻取0:
// 指定过去时刻的定时器在下一次poll时立即到期, 而不是报错.
func untilOrZero(when time.Time) time.Duration {
	if d := time.Until(when); d > 0 {
		return d
	}
	return 0
}
