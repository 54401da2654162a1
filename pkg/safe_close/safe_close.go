// Package safe_close coordinates shutdown of long running goroutines
// Package safe_close 统一关闭长时间运行的协程
package safe_close

import (
	"errors"
	"sync"
)

// SafeClose broadcasts a single close signal to every attached goroutine and waits for them.
// SafeClose 向所有挂载的协程广播关闭信号并等待其退出
type SafeClose struct {
	once    sync.Once
	closeCh chan struct{}
	wg      sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

func NewSafeClose() *SafeClose {
	return &SafeClose{closeCh: make(chan struct{})}
}

// Attach runs fn in a new goroutine. fn must call done before returning.
// Attach 在新协程中运行 fn，fn 返回前必须调用 done
func (s *SafeClose) Attach(fn func(done func(), closeSignal <-chan struct{})) {
	s.wg.Add(1)
	go fn(s.wg.Done, s.closeCh)
}

// SendCloseSignal 发送关闭信号，可重复调用，err 非 nil 时记录
func (s *SafeClose) SendCloseSignal(err error) {
	if err != nil {
		s.mu.Lock()
		s.errs = append(s.errs, err)
		s.mu.Unlock()
	}
	s.once.Do(func() { close(s.closeCh) })
}

// CloseSignal 关闭信号通道
func (s *SafeClose) CloseSignal() <-chan struct{} {
	return s.closeCh
}

// WaitClosed 等待所有挂载的协程退出，返回关闭原因
func (s *SafeClose) WaitClosed() error {
	s.wg.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}
