// Package writequeue provides a per-key write queue.
// Package writequeue 提供按 key 串行化的写队列
// Every key (a contract id) owns one FIFO worker, so version transitions of the same
// contract never interleave while different contracts proceed in parallel.
// 每个 key（合同 ID）拥有一个 FIFO worker，同一合同的版本写入不会交错，不同合同并行执行
package writequeue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Error definitions
// 错误定义
var (
	// ErrWriteQueueFull returned when the key's queue is full
	// ErrWriteQueueFull 当该 key 的写队列已满时返回
	ErrWriteQueueFull = errors.New("write queue is full")
	// ErrWriteQueueClosed returned when write queue manager is closed
	// ErrWriteQueueClosed 当写队列管理器已关闭时返回
	ErrWriteQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout returned when write operation timeout
	// ErrWriteTimeout 当写操作超时时返回
	ErrWriteTimeout = errors.New("write operation timeout")
)

// Config write queue configuration
// Config 写队列配置
type Config struct {
	// QueueCapacity per-key queue capacity, default 100
	// QueueCapacity 每个 key 的队列容量，默认 100
	QueueCapacity int
	// WriteTimeout how long a caller waits for its operation, default 30 seconds
	// WriteTimeout 调用方等待写操作的最长时间，默认 30 秒
	WriteTimeout time.Duration
	// IdleTimeout idle worker cleanup timeout, default 10 minutes
	// IdleTimeout 空闲 worker 清理超时时间，默认 10 分钟
	IdleTimeout time.Duration
}

// DefaultConfig returns default configuration
// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 100,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   10 * time.Minute,
	}
}

// heldKeys is the chain of keys whose worker is running the current call stack.
// heldKeys 记录当前调用栈正在占用的 key
type heldKeys struct {
	key    int64
	parent *heldKeys
}

type heldKeysCtxKey struct{}

func (h *heldKeys) has(key int64) bool {
	for n := h; n != nil; n = n.parent {
		if n.key == key {
			return true
		}
	}
	return false
}

// Holds reports whether ctx is already executing on key's worker.
// Holds 判断 ctx 是否已运行在该 key 的 worker 上
func Holds(ctx context.Context, key int64) bool {
	h, _ := ctx.Value(heldKeysCtxKey{}).(*heldKeys)
	return h.has(key)
}

func withHeld(ctx context.Context, key int64) context.Context {
	parent, _ := ctx.Value(heldKeysCtxKey{}).(*heldKeys)
	return context.WithValue(ctx, heldKeysCtxKey{}, &heldKeys{key: key, parent: parent})
}

// writeOp write operation
// writeOp 写操作
type writeOp struct {
	ctx    context.Context
	fn     func(ctx context.Context) error
	result chan error
	state  *atomic.Int32
}

const (
	opPending int32 = iota
	opRunning
	opAbandoned
)

// keyQueue queue of a single key
// keyQueue 单个 key 的写队列
type keyQueue struct {
	key      int64
	ch       chan writeOp
	lastUsed atomic.Int64
	closed   atomic.Bool
	workerWg sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

func (q *keyQueue) stop() {
	q.closed.Store(true)
	q.stopOnce.Do(func() { close(q.stopCh) })
}

// Manager manages the write queues of all keys
// Manager 管理所有 key 的写队列
type Manager struct {
	config Config
	logger *zap.Logger

	queues sync.Map // map[int64]*keyQueue

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	executed atomic.Int64
	rejected atomic.Int64

	cleanupWg   sync.WaitGroup
	cleanupDone chan struct{}
}

// New creates write queue manager
// New 创建写队列管理器
// cfg: configuration, if nil use default configuration
// cfg: 配置，如果为 nil 则使用默认配置
// logger: zap logger, if nil use nop logger
// logger: zap 日志器，如果为 nil 则使用 nop logger
func New(cfg *Config, logger *zap.Logger) *Manager {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.QueueCapacity > 0 {
			c.QueueCapacity = cfg.QueueCapacity
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			c.IdleTimeout = cfg.IdleTimeout
		}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:      c,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}

	m.cleanupWg.Add(1)
	go m.cleanupIdleQueues()

	m.logger.Info("write queue manager started",
		zap.Int("queueCapacity", c.QueueCapacity),
		zap.Duration("writeTimeout", c.WriteTimeout),
		zap.Duration("idleTimeout", c.IdleTimeout))

	return m
}

// Execute runs fn on key's worker and waits for its result.
// Operations on the same key run one at a time in FIFO order. When ctx is already
// running on key's worker, fn runs inline so nested writes cannot deadlock.
//
// When Execute gives up (timeout, ctx done) on an op that has not started, the op is
// skipped. An op already running has its context cancelled but may still finish; a
// write that commits after that point is reported to the caller as the timeout error.
// Execute 在 key 对应的 worker 上执行 fn 并等待结果
// 同一 key 的操作按 FIFO 顺序逐个执行；若 ctx 已运行在该 key 的 worker 上，则直接内联执行
// 放弃等待时尚未开始的操作不再执行；已开始的操作其 ctx 被取消，但仍可能完成提交
func (m *Manager) Execute(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	if Holds(ctx, key) {
		return fn(ctx)
	}

	if m.IsClosed() {
		return ErrWriteQueueClosed
	}

	queue := m.getOrCreateQueue(key)
	if queue == nil {
		return ErrWriteQueueClosed
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make(chan error, 1)
	op := writeOp{ctx: opCtx, fn: fn, result: result, state: new(atomic.Int32)}

	select {
	case queue.ch <- op:
	default:
		m.rejected.Add(1)
		return ErrWriteQueueFull
	}

	timeout := m.config.WriteTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		op.state.CompareAndSwap(opPending, opAbandoned)
		return ctx.Err()
	case <-timer.C:
		op.state.CompareAndSwap(opPending, opAbandoned)
		return ErrWriteTimeout
	case <-m.ctx.Done():
		op.state.CompareAndSwap(opPending, opAbandoned)
		return ErrWriteQueueClosed
	}
}

// getOrCreateQueue gets or lazily creates the queue of key
// getOrCreateQueue 获取或懒加载创建 key 的写队列
func (m *Manager) getOrCreateQueue(key int64) *keyQueue {
	if v, ok := m.queues.Load(key); ok {
		queue := v.(*keyQueue)
		if !queue.closed.Load() {
			queue.lastUsed.Store(time.Now().UnixNano())
			return queue
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil
	}

	queue := &keyQueue{
		key:    key,
		ch:     make(chan writeOp, m.config.QueueCapacity),
		stopCh: make(chan struct{}),
	}
	queue.lastUsed.Store(time.Now().UnixNano())

	actual, loaded := m.queues.LoadOrStore(key, queue)
	if loaded {
		existing := actual.(*keyQueue)
		if !existing.closed.Load() {
			existing.lastUsed.Store(time.Now().UnixNano())
			return existing
		}
		// 旧队列已关闭，替换
		if !m.queues.CompareAndSwap(key, existing, queue) {
			return m.loadOpen(key)
		}
	}

	queue.workerWg.Add(1)
	go m.worker(queue)

	m.logger.Debug("created write queue",
		zap.Int64("key", key),
		zap.Int("capacity", m.config.QueueCapacity))

	return queue
}

func (m *Manager) loadOpen(key int64) *keyQueue {
	if v, ok := m.queues.Load(key); ok {
		if q := v.(*keyQueue); !q.closed.Load() {
			return q
		}
	}
	return nil
}

// worker 处理单个 key 写队列的 goroutine
func (m *Manager) worker(queue *keyQueue) {
	defer queue.workerWg.Done()
	defer func() {
		queue.closed.Store(true)
		m.logger.Debug("write queue worker stopped", zap.Int64("key", queue.key))
	}()

	for {
		select {
		case <-m.ctx.Done():
			m.drainQueue(queue)
			return
		case <-queue.stopCh:
			m.drainQueue(queue)
			return
		case op := <-queue.ch:
			m.executeOp(queue, op)
		}
	}
}

// executeOp executes single write operation
// executeOp 执行单个写操作
func (m *Manager) executeOp(queue *keyQueue, op writeOp) {
	queue.lastUsed.Store(time.Now().UnixNano())

	// 调用方已放弃
	if !op.state.CompareAndSwap(opPending, opRunning) {
		return
	}
	if err := op.ctx.Err(); err != nil {
		op.result <- err
		return
	}

	err := m.run(withHeld(op.ctx, queue.key), queue.key, op.fn)
	m.executed.Add(1)

	select {
	case op.result <- err:
	default:
	}
}

// run 执行 fn，panic 转换为错误以保护 worker
func (m *Manager) run(ctx context.Context, key int64, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("write operation panicked", zap.Int64("key", key), zap.Any("panic", r))
			err = fmt.Errorf("write operation panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// drainQueue drains remaining operations in queue
// drainQueue 排空队列中的剩余操作
func (m *Manager) drainQueue(queue *keyQueue) {
	for {
		select {
		case op := <-queue.ch:
			m.executeOp(queue, op)
		default:
			return
		}
	}
}

// cleanupIdleQueues regularly stops idle workers
// cleanupIdleQueues 定期清理空闲队列
func (m *Manager) cleanupIdleQueues() {
	defer m.cleanupWg.Done()

	ticker := time.NewTicker(m.config.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.cleanupDone:
			return
		case <-ticker.C:
			m.doCleanup()
		}
	}
}

// doCleanup performs one cleanup
// doCleanup 执行一次清理
func (m *Manager) doCleanup() {
	now := time.Now().UnixNano()
	idle := m.config.IdleTimeout.Nanoseconds()

	m.queues.Range(func(k, v any) bool {
		key := k.(int64)
		queue := v.(*keyQueue)

		lastUsed := queue.lastUsed.Load()
		if now-lastUsed > idle && len(queue.ch) == 0 && !queue.closed.Load() {
			m.logger.Debug("cleaning up idle write queue",
				zap.Int64("key", key),
				zap.Duration("idleTime", time.Duration(now-lastUsed)))
			queue.stop()
			m.queues.CompareAndDelete(key, queue)
		}
		return true
	})
}

// Shutdown closes the manager and waits for queued operations to finish
// Shutdown 关闭写队列管理器，等待队列中的操作完成
// ctx 用于控制关闭超时
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.logger.Info("write queue manager shutting down")
	close(m.cleanupDone)

	done := make(chan struct{})
	go func() {
		m.queues.Range(func(_, v any) bool {
			v.(*keyQueue).stop()
			return true
		})
		m.queues.Range(func(_, v any) bool {
			v.(*keyQueue).workerWg.Wait()
			return true
		})
		m.cleanupWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("write queue manager shutdown completed")
		m.cancel()
		return nil
	case <-ctx.Done():
		m.logger.Warn("write queue manager shutdown timeout, forcing cancellation")
		m.cancel()
		return ctx.Err()
	}
}

// QueueCount returns current active queue count
// QueueCount 返回当前活跃队列数量
func (m *Manager) QueueCount() int {
	count := 0
	m.queues.Range(func(_, v any) bool {
		if !v.(*keyQueue).closed.Load() {
			count++
		}
		return true
	})
	return count
}

// QueuedCount returns number of operations waiting on key
// QueuedCount 返回指定 key 队列中等待的操作数
func (m *Manager) QueuedCount(key int64) int {
	if v, ok := m.queues.Load(key); ok {
		return len(v.(*keyQueue).ch)
	}
	return 0
}

// IsClosed returns if manager is closed
// IsClosed 返回管理器是否已关闭
func (m *Manager) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Metrics write queue manager metrics
// Metrics 写队列管理器指标
type Metrics struct {
	QueueCapacity int
	ActiveQueues  int
	Executed      int64
	Rejected      int64
	IsClosed      bool
}

// GetMetrics gets current metrics
// GetMetrics 获取当前指标
func (m *Manager) GetMetrics() Metrics {
	return Metrics{
		QueueCapacity: m.config.QueueCapacity,
		ActiveQueues:  m.QueueCount(),
		Executed:      m.executed.Load(),
		Rejected:      m.rejected.Load(),
		IsClosed:      m.IsClosed(),
	}
}
