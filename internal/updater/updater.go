package updater

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"jpestate/server/internal/database"
	"jpestate/server/internal/models"
)

// ExpiryChecker reports whether the listing at a url has been taken
// down. Satisfied by the scraping extractor bound to a browser context.
type ExpiryChecker interface {
	CheckExpired(ctx context.Context, pageURL string) (bool, error)
}

// Summary is the outcome of one revalidation run.
type Summary struct {
	Checked int `json:"checked"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

// Updater revalidates active listings against the live source and
// retires the ones that disappeared. Expiry is one-way; a listing that
// reappears under the same url is already persisted and stays expired.
type Updater struct {
	store       database.Store
	concurrency int
	logger      *logrus.Logger
}

func NewUpdater(store database.Store, concurrency int, logger *logrus.Logger) *Updater {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Updater{store: store, concurrency: concurrency, logger: logger}
}

// Revalidate checks every active listing with the given checker. Check
// failures are logged and counted; they never flip a listing's status.
func (u *Updater) Revalidate(ctx context.Context, checker ExpiryChecker) (Summary, error) {
	urls, err := u.store.FetchActiveURLs()
	if err != nil {
		return Summary{}, err
	}

	u.logger.WithField("active", len(urls)).Info("Starting revalidation run")

	var summary Summary
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, u.concurrency)

	for _, active := range urls {
		select {
		case <-ctx.Done():
			wg.Wait()
			return summary, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(active models.ActiveURL) {
			defer wg.Done()
			defer func() { <-sem }()

			expired, err := checker.CheckExpired(ctx, active.URL)

			mu.Lock()
			defer mu.Unlock()
			summary.Checked++

			if err != nil {
				summary.Failed++
				u.logger.WithError(err).WithField("url", active.URL).Error("Failed to revalidate listing")
				return
			}
			if !expired {
				return
			}

			if err := u.store.UpdateStatus(active.ID, models.StatusExpired); err != nil {
				summary.Failed++
				u.logger.WithError(err).WithField("id", active.ID).Error("Failed to expire listing")
				return
			}
			summary.Expired++
			u.logger.WithFields(logrus.Fields{
				"id":  active.ID,
				"url": active.URL,
			}).Info("Listing expired")
		}(active)
	}

	wg.Wait()

	u.logger.WithFields(logrus.Fields{
		"checked": summary.Checked,
		"expired": summary.Expired,
		"failed":  summary.Failed,
	}).Info("Revalidation run complete")
	return summary, nil
}
