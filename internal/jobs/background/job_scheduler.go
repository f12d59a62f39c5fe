package background

import (
	"context"
	"sort"
	"sync"
	"time"

	"binledger/internal/config"
	"binledger/internal/services"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	IntegritySweepJob = "integrity-sweep"
	LedgerArchiveJob  = "ledger-archive"
)

// JobScheduler runs the periodic integrity sweep and ledger archive. Jobs run
// in singleton mode so a slow run is never overlapped by the next one.
type JobScheduler struct {
	scheduler    gocron.Scheduler
	integritySvc services.IntegrityService
	archiveSvc   services.ArchiveService
	logger       *zap.Logger
	jobs         map[string]gocron.Job
	mu           sync.RWMutex
}

// JobStatus describes one registered job
type JobStatus struct {
	Name    string    `json:"name"`
	LastRun time.Time `json:"last_run,omitempty"`
	NextRun time.Time `json:"next_run,omitempty"`
}

// NewJobScheduler registers the jobs enabled by cfg. archiveSvc may be nil
// when object storage is not configured.
func NewJobScheduler(cfg config.JobsConfig, integritySvc services.IntegrityService, archiveSvc services.ArchiveService, logger *zap.Logger) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:    scheduler,
		integritySvc: integritySvc,
		archiveSvc:   archiveSvc,
		logger:       logger,
		jobs:         make(map[string]gocron.Job),
	}

	if err := js.AddJob(IntegritySweepJob, cfg.IntegritySweepInterval, js.runIntegritySweep); err != nil {
		return nil, err
	}
	if archiveSvc != nil {
		if err := js.AddJob(LedgerArchiveJob, cfg.ArchiveInterval, js.runLedgerArchive); err != nil {
			return nil, err
		}
	}

	logger.Info("registered background jobs", zap.Int("count", len(js.jobs)))
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) runIntegritySweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := js.integritySvc.Sweep(ctx); err != nil {
		js.logger.Error("integrity sweep failed", zap.Error(err))
	}
}

func (js *JobScheduler) runLedgerArchive() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := js.archiveSvc.ArchivePending(ctx); err != nil {
		js.logger.Error("ledger archive failed", zap.Error(err))
	}
}

// AddJob schedules fn every interval under name
func (js *JobScheduler) AddJob(name string, interval time.Duration, fn func()) error {
	js.mu.Lock()
	defer js.mu.Unlock()

	job, err := js.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	js.jobs[name] = job
	return nil
}

// RunNow triggers a registered job immediately
func (js *JobScheduler) RunNow(name string) (bool, error) {
	js.mu.RLock()
	job, exists := js.jobs[name]
	js.mu.RUnlock()
	if !exists {
		return false, nil
	}
	return true, job.RunNow()
}

// GetJobStatus lists the registered jobs sorted by name
func (js *JobScheduler) GetJobStatus() []JobStatus {
	js.mu.RLock()
	defer js.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(js.jobs))
	for name, job := range js.jobs {
		status := JobStatus{Name: name}
		if lastRun, err := job.LastRun(); err == nil {
			status.LastRun = lastRun
		}
		if nextRun, err := job.NextRun(); err == nil {
			status.NextRun = nextRun
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}
