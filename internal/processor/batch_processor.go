package processor

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"jpestate/server/config"
	"jpestate/server/internal/cleaner"
	"jpestate/server/internal/database"
	"jpestate/server/internal/models"
	"jpestate/server/internal/queue"
)

// Notifier receives newly persisted listings. Implemented by the
// telegram service; nil disables notifications.
type Notifier interface {
	NotifyNewListing(record *models.PersistedRecord) error
}

// BatchProcessor drains raw listing batches off the queue, cleans them
// and persists the survivors.
type BatchProcessor struct {
	store     database.Store
	cleaner   *cleaner.Cleaner
	notifier  Notifier
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.ListingQueue
	source    string
	waitGroup sync.WaitGroup
}

func NewBatchProcessor(store database.Store, q *queue.ListingQueue, cfg *config.Config, logger *logrus.Logger) *BatchProcessor {
	return &BatchProcessor{
		store:   store,
		cleaner: cleaner.New(logger),
		logger:  logger,
		config:  cfg,
		queue:   q,
		source:  cfg.Scraper.Source,
	}
}

// SetNotifier wires a notifier for newly persisted listings.
func (p *BatchProcessor) SetNotifier(n Notifier) {
	p.notifier = n
}

// Start subscribes the configured number of processors to the queue.
func (p *BatchProcessor) Start() {
	for i := 0; i < p.config.BatchProcessing.ProcessorCount; i++ {
		p.waitGroup.Add(1)
		go p.processLoop()
	}
}

// Stop waits for in-flight subscriptions to register.
func (p *BatchProcessor) Stop() {
	p.waitGroup.Wait()
}

func (p *BatchProcessor) processLoop() {
	defer p.waitGroup.Done()

	p.queue.Subscribe(func(batch []models.RawListing) error {
		return p.ProcessBatch(batch)
	})
}

// ProcessBatch cleans one batch and upserts it with retry. Cleaning
// failures drop individual items; only persistence errors trigger a
// retry of the batch.
func (p *BatchProcessor) ProcessBatch(batch []models.RawListing) error {
	result := p.cleaner.CleanAll(batch)
	if len(result.Cleaned) == 0 {
		p.logger.WithField("batch_size", len(batch)).Warn("No listings survived cleaning")
		return nil
	}

	var newIDs []int64
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			time.Sleep(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second)
		}

		newIDs, err = p.store.UpsertBatch(p.source, result.Cleaned)
		if err == nil {
			p.logger.WithFields(logrus.Fields{
				"cleaned":  len(result.Cleaned),
				"inserted": len(newIDs),
				"skipped":  len(result.Cleaned) - len(newIDs),
			}).Info("Processed listing batch")
			p.notifyNew(newIDs)
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries, err)
}

func (p *BatchProcessor) notifyNew(ids []int64) {
	if p.notifier == nil {
		return
	}

	for _, id := range ids {
		record, err := p.store.GetByID(id)
		if err != nil {
			p.logger.WithError(err).WithField("id", id).Error("Failed to load listing for notification")
			continue
		}
		if err := p.notifier.NotifyNewListing(record); err != nil {
			p.logger.WithError(err).WithField("id", id).Error("Failed to send new listing notification")
		}
	}
}
