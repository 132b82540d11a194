package scraping

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"jpestate/server/internal/models"
	"jpestate/server/internal/queue"
)

// Manager drives detail-page scrape runs. It owns one headless browser
// allocator and fans extracted listings into the processing queue in
// batches.
type Manager struct {
	logger    *logrus.Logger
	extractor *Extractor
	queue     *queue.ListingQueue

	headless  bool
	batchSize int
	rateLimit time.Duration

	mu      sync.Mutex
	running bool
}

type ManagerOptions struct {
	Headless  bool
	Timeout   time.Duration
	BatchSize int
	RateLimit time.Duration
}

func NewManager(q *queue.ListingQueue, opts ManagerOptions, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = time.Second
	}

	return &Manager{
		logger:    logger,
		extractor: NewExtractor(opts.Timeout, logger),
		queue:     q,
		headless:  opts.Headless,
		batchSize: opts.BatchSize,
		rateLimit: opts.RateLimit,
	}
}

// NewBrowserContext creates a browser context for a scrape or
// revalidation run. The returned cancel func must be called to shut
// the browser down.
func (m *Manager) NewBrowserContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...interface{}) {}))

	cancel := func() {
		cancelBrowser()
		cancelAlloc()
	}
	return browserCtx, cancel
}

// Extractor exposes the page extractor for revalidation runs that
// share the manager's browser settings.
func (m *Manager) Extractor() *Extractor {
	return m.extractor
}

// ScrapeURLs extracts every given detail page and pushes the results
// onto the queue in batches. Failed pages are logged and skipped; one
// broken page never aborts a run.
func (m *Manager) ScrapeURLs(ctx context.Context, urls []string) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("a scrape run is already in progress")
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	m.logger.WithField("urls", len(urls)).Info("Starting scrape run")

	browserCtx, cancel := m.NewBrowserContext(ctx)
	defer cancel()

	var batch []models.RawListing
	var scraped, failed int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := m.queue.Push(batch); err != nil {
			return fmt.Errorf("failed to enqueue batch: %w", err)
		}
		batch = nil
		return nil
	}

	for _, pageURL := range urls {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		raw, err := m.extractor.ExtractDetail(browserCtx, pageURL)
		if err != nil {
			m.logger.WithError(err).WithField("url", pageURL).Error("Failed to scrape listing")
			failed++
			continue
		}
		scraped++

		batch = append(batch, raw)
		if len(batch) >= m.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}

		time.Sleep(m.rateLimit)
	}

	if err := flush(); err != nil {
		return err
	}

	m.logger.WithFields(logrus.Fields{
		"scraped": scraped,
		"failed":  failed,
	}).Info("Scrape run complete")
	return nil
}

// IsRunning reports whether a scrape run is in progress.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
