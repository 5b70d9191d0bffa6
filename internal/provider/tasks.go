package provider

import (
	"context"
	"sync"
)

// taskRunner owns one goroutine per running task ID
type taskRunner struct {
	mu    sync.Mutex
	tasks map[string]*runningTask
}

type runningTask struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// start replaces any task already running under taskID
func (r *taskRunner) start(taskID string, run func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	task := &runningTask{ctx: ctx, cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	if r.tasks == nil {
		r.tasks = make(map[string]*runningTask)
	}
	prev := r.tasks[taskID]
	r.tasks[taskID] = task
	r.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	go func() {
		defer close(task.done)
		run(ctx)
	}()
}

// stop cancels taskID and waits for its goroutine to exit
func (r *taskRunner) stop(taskID string) error {
	r.mu.Lock()
	task, ok := r.tasks[taskID]
	if ok {
		delete(r.tasks, taskID)
	}
	r.mu.Unlock()

	if !ok {
		return ErrTaskNotRunning
	}
	task.cancel()
	<-task.done
	return nil
}

// finish removes taskID from inside its own goroutine without waiting on itself
func (r *taskRunner) finish(ctx context.Context, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.tasks[taskID]; ok && task.ctx == ctx {
		delete(r.tasks, taskID)
		task.cancel()
	}
}

func (r *taskRunner) running(taskID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[taskID]
	return ok
}

// stopAll cancels every task
func (r *taskRunner) stopAll() {
	r.mu.Lock()
	tasks := r.tasks
	r.tasks = nil
	r.mu.Unlock()

	for _, task := range tasks {
		task.cancel()
		<-task.done
	}
}
