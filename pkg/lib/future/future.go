// Package future 提供异步完成句柄
//
// Future 携带一个成功值或一个错误，只能完成一次。
// 调用方可以：
//   - Then 注册完成监听（已完成时立即在当前协程执行）
//   - Wait 阻塞等待，由 ctx 控制截止时间
//   - Done 获取完成通知 channel，用于 select
//
// 引擎本身不施加超时：未完成的连接尝试永远不会完成其 Future，
// 由上层通过 Wait(ctx) 设置截止时间。
package future

import (
	"context"
	"errors"
	"sync"
)

// ErrPending Future 尚未完成
var ErrPending = errors.New("future not completed")

// Future 异步结果句柄
type Future[T any] struct {
	done chan struct{}

	mu        sync.Mutex
	completed bool
	val       T
	err       error
	listeners []func(T, error)
}

// New 创建未完成的 Future
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Succeeded 创建已成功的 Future
func Succeeded[T any](v T) *Future[T] {
	f := New[T]()
	f.Complete(v)
	return f
}

// Failed 创建已失败的 Future
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	f.Fail(err)
	return f
}

// Complete 以成功值完成，返回是否由本次调用完成
func (f *Future[T]) Complete(v T) bool {
	return f.finish(v, nil)
}

// Fail 以错误完成，返回是否由本次调用完成
func (f *Future[T]) Fail(err error) bool {
	var zero T
	if err == nil {
		err = errors.New("future failed with nil error")
	}
	return f.finish(zero, err)
}

func (f *Future[T]) finish(v T, err error) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.val = v
	f.err = err
	listeners := f.listeners
	f.listeners = nil
	close(f.done)
	f.mu.Unlock()

	// 监听器在锁外执行，允许其再次注册或完成其他 Future
	for _, fn := range listeners {
		fn(v, err)
	}
	return true
}

// Then 注册完成监听
//
// 已完成时在调用协程立即执行；否则在完成协程上执行。
func (f *Future[T]) Then(fn func(T, error)) *Future[T] {
	f.mu.Lock()
	if !f.completed {
		f.listeners = append(f.listeners, fn)
		f.mu.Unlock()
		return f
	}
	v, err := f.val, f.err
	f.mu.Unlock()
	fn(v, err)
	return f
}

// Done 返回完成通知 channel
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone 是否已完成
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Failed 是否以错误完成
func (f *Future[T]) Failed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed && f.err != nil
}

// Result 非阻塞获取结果，未完成时返回 ErrPending
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.completed {
		var zero T
		return zero, ErrPending
	}
	return f.val, f.err
}

// Wait 阻塞等待完成或 ctx 结束
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
