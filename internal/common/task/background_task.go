package task

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loadscope/loadscope/internal/common/scopecontext"
)

type task struct {
	function    func(ctx *scopecontext.Context)
	interval    time.Duration
	metricName  string
	stopChannel chan bool
}

// BackgroundTaskManager runs registered functions on a fixed interval. A task's next run is only scheduled
// once its previous run has returned, so a single task never overlaps with itself.
//
// BackgroundTaskManager is not threadsafe, it should only be accessed from a single thread.
type BackgroundTaskManager struct {
	tasks         []*task
	metricsPrefix string
	registerer    prometheus.Registerer
	wg            *sync.WaitGroup
}

func NewBackgroundTaskManager(metricsPrefix string, registerer prometheus.Registerer) *BackgroundTaskManager {
	return &BackgroundTaskManager{
		tasks:         []*task{},
		metricsPrefix: metricsPrefix,
		registerer:    registerer,
		wg:            &sync.WaitGroup{},
	}
}

// Register starts running backgroundTask immediately and then every interval until StopAll is called
// or ctx is cancelled.
func (m *BackgroundTaskManager) Register(ctx *scopecontext.Context, backgroundTask func(ctx *scopecontext.Context), interval time.Duration, metricName string) {
	task := &task{
		function:    backgroundTask,
		interval:    interval,
		metricName:  metricName,
		stopChannel: make(chan bool, 1),
	}
	m.startBackgroundTask(ctx, task)
	m.tasks = append(m.tasks, task)
}

// StopAll stops every task and waits up to timeout for them to finish. Returns true if the wait timed out.
func (m *BackgroundTaskManager) StopAll(timeout time.Duration) bool {
	m.stopTasks()
	return m.waitForShutdownCompletion(timeout)
}

func (m *BackgroundTaskManager) startBackgroundTask(ctx *scopecontext.Context, task *task) {
	taskDurationHistogram := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    m.metricsPrefix + task.metricName + "_latency_seconds",
			Help:    "Background loop " + task.metricName + " latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
		})
	if m.registerer != nil {
		if err := m.registerer.Register(taskDurationHistogram); err != nil {
			ctx.Log.WithError(err).Warnf("Could not register latency histogram for task %s", task.metricName)
		}
	}

	taskCtx := scopecontext.WithLogField(ctx, "task", task.metricName)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		start := time.Now()
		task.function(taskCtx)
		duration := time.Since(start)
		taskDurationHistogram.Observe(duration.Seconds())

		for {
			select {
			case <-time.After(task.interval):
			case <-task.stopChannel:
				return
			case <-ctx.Done():
				return
			}
			innerStart := time.Now()
			task.function(taskCtx)
			innerDuration := time.Since(innerStart)
			taskDurationHistogram.Observe(innerDuration.Seconds())
		}
	}()
}

func (m *BackgroundTaskManager) waitForShutdownCompletion(timeout time.Duration) bool {
	c := make(chan struct{})
	go func() {
		defer close(c)
		m.wg.Wait()
	}()
	select {
	case <-c:
		return false // completed normally
	case <-time.After(timeout):
		return true // timed out
	}
}

func (m *BackgroundTaskManager) stopTasks() {
	for _, task := range m.tasks {
		select {
		case task.stopChannel <- true:
		default:
		}
	}
}
