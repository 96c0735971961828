package engine

import (
	"context"
	"time"
)

// task is a periodic job owned by the engine lifecycle.
type task struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context)
}

func (e *Engine) sweepTasks(intervals Intervals) []task {
	var tasks []task
	add := func(name string, interval, fallback time.Duration, run func(ctx context.Context)) {
		if interval < 0 {
			return
		}
		if interval == 0 {
			interval = fallback
		}
		tasks = append(tasks, task{name: name, interval: interval, run: run})
	}

	add("notifications", intervals.Notifications, DefaultNotificationInterval, func(ctx context.Context) {
		_, _ = e.SweepNotifications(ctx)
	})
	add("maintenance", intervals.Maintenance, DefaultMaintenanceInterval, func(ctx context.Context) {
		_, _ = e.SweepMaintenance(ctx)
		_, _ = e.SweepReminders(ctx)
	})
	add("stock", intervals.Stock, DefaultStockInterval, func(ctx context.Context) {
		_, _ = e.SweepStock(ctx)
	})
	return tasks
}

// AddTask registers an extra periodic job, such as the sensor simulator. The
// job runs outside the command mutex and should go through engine commands.
// Tasks added after Start are ignored.
func (e *Engine) AddTask(name string, interval time.Duration, run func(ctx context.Context)) {
	if interval <= 0 || run == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		e.logger.Warn("task registered too late", "task", name)
		return
	}
	e.tasks = append(e.tasks, task{name: name, interval: interval, run: run})
}

func (e *Engine) runTask(ctx context.Context, t task) {
	defer e.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	logger := e.logger.With("task", t.name)
	logger.Debug("task started", "interval", t.interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Debug("task stopped")
			return
		case <-ticker.C:
			t.run(ctx)
		}
	}
}

// SweepNotifications removes expired notifications.
func (e *Engine) SweepNotifications(ctx context.Context) (removed int, err error) {
	err = e.exec(func() error {
		removed = e.notifier.Sweep(e.now())
		return nil
	})
	return
}

// SweepMaintenance marks overdue events missed and reconciles equipment status.
func (e *Engine) SweepMaintenance(ctx context.Context) (missed int, err error) {
	err = e.exec(func() error {
		missed = e.maintenance.SweepOverdue(ctx)
		return nil
	})
	return
}

// SweepReminders emits reminders for events falling due soon.
func (e *Engine) SweepReminders(ctx context.Context) (sent int, err error) {
	err = e.exec(func() error {
		sent = e.maintenance.SweepReminders(ctx)
		return nil
	})
	return
}

// SweepStock re-evaluates every stock item.
func (e *Engine) SweepStock(ctx context.Context) (fired int, err error) {
	err = e.exec(func() error {
		fired = e.stock.Sweep(ctx)
		return nil
	})
	return
}
