package gopool

import (
	"log"

	"github.com/panjf2000/ants/v2"
)

// 进程级协程池: reactor等内部循环协程统一从这里派生.
var pool *ants.Pool

func init() {
	var err error
	pool, err = ants.NewPool(ants.DefaultAntsPoolSize, ants.WithNonblocking(true))
	if err != nil {
		log.Fatalln(err)
	}
}

// Execute 提交fn到协程池执行, 池已释放时自动重建.
// 提交失败时退回裸协程, 保证fn一定会被执行.
func Execute(fn func()) {
	if pool.IsClosed() {
		pool.Reboot()
	}
	if err := pool.Submit(fn); err != nil {
		log.Println("gopool: submit fail, fallback: ", err)
		go fn()
	}
}

// Release 释放协程池.
func Release() {
	pool.Release()
}
