package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pyihe/deferred"
	"github.com/pyihe/go-pkg/syncs"
)

func main() {
	testOnce()
	testRepeat()
}

func testOnce() {
	counter := new(syncs.AtomicInt64)

	for i := 1; i <= 1000; i++ {
		i := i
		d := time.Duration(i) * time.Millisecond
		deferred.ScheduleIn(d, func(ctx context.Context) int {
			counter.Inc(1)
			return i
		})
	}

	// 过去的时刻, 立即触发
	a := deferred.ScheduleAt(time.Now().Add(-time.Second), func(ctx context.Context) string {
		counter.Inc(1)
		return "past"
	})
	if v, ok := a.Join(context.Background()); ok {
		fmt.Println("past action:", v)
	}

	time.Sleep(2 * time.Second)
	fmt.Println("once counter =", counter.Value())
}

func testRepeat() {
	counter := new(syncs.AtomicInt64)

	a := deferred.Repeat(func(ctx context.Context) (time.Duration, bool) {
		counter.Inc(1)
		if counter.Value() >= 10 {
			return 0, false
		}
		return 5 * time.Millisecond, true
	})

	if a.Join(context.Background()) {
		fmt.Println("repeat finished, counter =", counter.Value())
	}

	b := deferred.Repeat(func(ctx context.Context) (time.Duration, bool) {
		counter.Inc(1)
		return 10 * time.Millisecond, true
	})
	time.Sleep(50 * time.Millisecond)
	_ = b.Cancel(context.Background())
	fmt.Println("after cancel, counter =", counter.Value())
}
