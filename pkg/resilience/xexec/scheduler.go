package xexec

import (
	"sync"
	"time"
)

// ScheduledJob 已提交的延迟任务句柄。
type ScheduledJob interface {
	// Cancel 取消任务。
	// 尚未开始的任务取消后不会运行，返回 true；
	// 已开始或已完成的任务返回 false。
	// mayInterrupt 表示是否希望打断正在运行的任务——引擎内部的
	// 打断通过执行上下文的协作式取消实现，调度器本身不打断任务。
	Cancel(mayInterrupt bool) bool

	// Done 返回任务终结（完成或取消）时关闭的通道
	Done() <-chan struct{}
}

// Scheduler 延迟任务调度器。
//
// 核心只要求两点：延迟任务最终会运行；取消可以阻止尚未开始的任务运行。
// 不假设 FIFO 或任何公平性。
type Scheduler interface {
	// Schedule 在 delay 之后运行 fn，返回可取消的任务句柄
	Schedule(fn func(), delay time.Duration) (ScheduledJob, error)
}

// 任务状态
const (
	jobPending int32 = iota
	jobRunning
	jobDone
	jobCancelled
)

// timerJob timerScheduler 的任务句柄
type timerJob struct {
	mu    sync.Mutex
	state int32
	timer *time.Timer
	done  chan struct{}
}

// start 将任务从 pending 转为 running。
// 已取消的任务返回 false，任务体不会执行。
func (j *timerJob) start() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != jobPending {
		return false
	}
	j.state = jobRunning
	return true
}

// finish 标记任务完成
func (j *timerJob) finish() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == jobRunning {
		j.state = jobDone
		close(j.done)
	}
}

func (j *timerJob) Cancel(_ bool) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != jobPending {
		return false
	}
	j.state = jobCancelled
	if j.timer != nil {
		j.timer.Stop()
	}
	close(j.done)
	return true
}

func (j *timerJob) Done() <-chan struct{} {
	return j.done
}

// timerScheduler 基于 time.Timer 的默认调度器。
// 每个任务独占一个 goroutine，无工作池；对于重试场景
// （通常每秒至多几个任务）此模型足够。
type timerScheduler struct{}

var _ Scheduler = timerScheduler{}

// NewScheduler 创建基于 time.Timer 的默认调度器。
func NewScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) Schedule(fn func(), delay time.Duration) (ScheduledJob, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	if delay < 0 {
		delay = 0
	}
	job := &timerJob{done: make(chan struct{})}
	job.mu.Lock()
	defer job.mu.Unlock()
	job.timer = time.AfterFunc(delay, func() {
		if !job.start() {
			return
		}
		fn()
		job.finish()
	})
	return job, nil
}
