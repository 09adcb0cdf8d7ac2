package gopool

import (
	"testing"
	"time"
)

func TestExecuteRuns(t *testing.T) {
	done := make(chan struct{})
	Execute(func() {
		close(done)
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("fn未被执行")
	}
}

func TestExecuteAfterRelease(t *testing.T) {
	Release()

	// 池已释放, Execute应自动重建并执行fn
	done := make(chan struct{})
	Execute(func() {
		close(done)
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("释放后fn未被执行")
	}
}
