package ranking

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// JobMetrics provides centralized background job metrics tracking.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// jobType labels the warm job in background job metrics.
const jobType = "ranking_warm"

// Refresher recomputes and caches one ranking.
type Refresher interface {
	Refresh(ctx context.Context, t EntityType, limit int, filter *GeoFilter) ([]RankedItem, error)
}

// WarmTarget is one ranking kept hot by the warm job.
type WarmTarget struct {
	Type  EntityType
	Limit int
}

// DefaultWarmTargets are the rankings served on the landing screens.
var DefaultWarmTargets = []WarmTarget{
	{Type: TypeBrand, Limit: 10},
	{Type: TypeBrand, Limit: 50},
	{Type: TypeBusiness, Limit: 10},
}

// WarmJobConfig configures the cache warm job.
type WarmJobConfig struct {
	// Interval is the duration between warm cycles.
	Interval time.Duration
	// Timeout for each warm cycle.
	Timeout time.Duration
	// Targets to refresh each cycle. Defaults to DefaultWarmTargets.
	Targets []WarmTarget
	// Logger for job activity.
	Logger *slog.Logger
	// JobMetrics for centralized background job tracking.
	JobMetrics JobMetrics
}

// DefaultWarmInterval is the default interval between warm cycles.
const DefaultWarmInterval = 5 * time.Minute

// DefaultWarmTimeout is the default timeout for a single warm cycle.
const DefaultWarmTimeout = 30 * time.Second

// WarmJob periodically recomputes the most requested rankings so cached
// reads never wait on a full rescan.
type WarmJob struct {
	config    WarmJobConfig
	refresher Refresher

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWarmJob creates a new cache warm job.
func NewWarmJob(config WarmJobConfig, refresher Refresher) *WarmJob {
	if config.Interval == 0 {
		config.Interval = DefaultWarmInterval
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultWarmTimeout
	}
	if len(config.Targets) == 0 {
		config.Targets = DefaultWarmTargets
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &WarmJob{config: config, refresher: refresher}
}

// Start begins the periodic warm job.
// Returns immediately; the job runs in a background goroutine.
func (j *WarmJob) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})
	j.mu.Unlock()

	go j.run(ctx)
	return nil
}

// Stop signals the warm job to stop and waits for it to finish.
func (j *WarmJob) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	stopCh := j.stopCh
	doneCh := j.doneCh
	j.mu.Unlock()

	close(stopCh)
	<-doneCh

	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// IsRunning returns whether the job is currently running.
func (j *WarmJob) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *WarmJob) run(ctx context.Context) {
	defer close(j.doneCh)

	// Warm once up front so the first requests after boot hit the cache.
	j.warm(ctx)

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.config.Logger.Info("ranking warm job stopping due to context cancellation")
			return
		case <-j.stopCh:
			j.config.Logger.Info("ranking warm job stopping due to stop signal")
			return
		case <-ticker.C:
			j.warm(ctx)
		}
	}
}

// warm refreshes every target once. It returns the number of failed targets.
func (j *WarmJob) warm(parentCtx context.Context) int {
	ctx, cancel := context.WithTimeout(parentCtx, j.config.Timeout)
	defer cancel()

	start := time.Now()
	failed := 0

	for _, target := range j.config.Targets {
		if ctx.Err() != nil {
			j.config.Logger.Error("ranking warm timeout exceeded",
				"timeout", j.config.Timeout)
			j.incErrors("timeout")
			failed++
			break
		}

		items, err := j.refresher.Refresh(ctx, target.Type, target.Limit, nil)
		if err != nil {
			j.config.Logger.Error("failed to warm ranking",
				"entity_type", target.Type,
				"limit", target.Limit,
				"error", err)
			j.incErrors("refresh_error")
			failed++
			continue
		}
		j.config.Logger.Debug("ranking warmed",
			"entity_type", target.Type,
			"limit", target.Limit,
			"items", len(items))
	}

	duration := time.Since(start).Seconds()
	status := "success"
	if failed > 0 {
		status = "failure"
	}
	if j.config.JobMetrics != nil {
		j.config.JobMetrics.IncJobsTotal(jobType, status)
		j.config.JobMetrics.ObserveJobDuration(jobType, duration)
	}

	j.config.Logger.Info("ranking warm completed",
		"duration_seconds", duration,
		"targets", len(j.config.Targets),
		"failed", failed)
	return failed
}

func (j *WarmJob) incErrors(errorType string) {
	if j.config.JobMetrics != nil {
		j.config.JobMetrics.IncJobErrors(jobType, errorType)
	}
}

// WarmNow refreshes every target immediately without waiting for the ticker.
func (j *WarmJob) WarmNow(ctx context.Context) int {
	return j.warm(ctx)
}
