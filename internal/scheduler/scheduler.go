package scheduler

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// JobType labels the recurring jobs the scheduler runs.
type JobType int

const (
	JobTypeScrape JobType = iota
	JobTypeRevalidate
	JobTypeReload
)

func (j JobType) String() string {
	switch j {
	case JobTypeScrape:
		return "scrape"
	case JobTypeRevalidate:
		return "revalidate"
	case JobTypeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Jobs are the callbacks the scheduler drives. Each runs with the
// job mutex held, so jobs never overlap.
type Jobs struct {
	// Scrape ingests the seed URLs. Runs hourly and once at startup.
	Scrape func() error

	// Revalidate retires delisted listings. Runs daily at midnight.
	Revalidate func() error

	// Reload rebuilds the in-memory query table. Runs after every
	// scrape and revalidation.
	Reload func() error
}

// Scheduler manages periodic scrape, revalidation and reload runs.
type Scheduler struct {
	jobs     Jobs
	logger   *logrus.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	jobMutex sync.Mutex

	// Written by the startup goroutine, read by the ticker loop.
	isStartupRun atomic.Bool
}

func NewScheduler(jobs Jobs, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	s := &Scheduler{
		jobs:     jobs,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
	s.isStartupRun.Store(true)
	return s
}

// Start begins the scheduled tasks.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	// Run the startup scrape in a separate goroutine
	go func() {
		s.jobMutex.Lock()
		defer s.jobMutex.Unlock()
		s.logger.Info("Running startup scrape")
		s.runJob(JobTypeScrape, s.jobs.Scrape)
		s.runJob(JobTypeReload, s.jobs.Reload)
		s.isStartupRun.Store(false)
		s.logger.Info("Startup scrape completed")
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.executeScheduledJobs(t)
		}
	}
}

func (s *Scheduler) executeScheduledJobs(t time.Time) {
	// Skip if we're still running startup jobs
	if s.isStartupRun.Load() {
		s.logger.Debug("Skipping scheduled jobs while startup is in progress")
		return
	}

	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	s.logger.WithFields(logrus.Fields{
		"hour":   t.Hour(),
		"minute": t.Minute(),
	}).Debug("Checking scheduled jobs")

	// Revalidation runs at midnight, before the hourly scrape, so the
	// morning table reflects overnight delistings.
	if t.Hour() == 0 && t.Minute() == 0 {
		s.runJob(JobTypeRevalidate, s.jobs.Revalidate)
	}

	if t.Minute() == 0 {
		s.runJob(JobTypeScrape, s.jobs.Scrape)
		s.runJob(JobTypeReload, s.jobs.Reload)
	}
}

func (s *Scheduler) runJob(jobType JobType, job func() error) {
	if job == nil {
		return
	}

	s.logger.WithField("job_type", jobType.String()).Info("Starting scheduled job")
	if err := job(); err != nil {
		s.logger.WithError(err).WithField("job_type", jobType.String()).Error("Scheduled job failed")
		return
	}
	s.logger.WithField("job_type", jobType.String()).Info("Scheduled job completed successfully")
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
