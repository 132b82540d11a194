package scraping

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"jpestate/server/internal/models"
)

// detailTableSelector is the definition list carrying every labeled
// field on a listing detail page.
const detailTableSelector = "dl.dl-horizontal-border"

// expiredMarkerSelector appears only on pages whose listing was taken
// down or sold.
const expiredMarkerSelector = ".listing-expired, .property-sold-notice"

// extractFieldsJS collects the dt/dd label and value texts of every
// definition list on the page.
const extractFieldsJS = `
	(function() {
		var labels = [];
		var values = [];
		var lists = document.querySelectorAll('dl.dl-horizontal-border');
		for (var i = 0; i < lists.length; i++) {
			var dts = lists[i].querySelectorAll('dt');
			var dds = lists[i].querySelectorAll('dd');
			var n = Math.min(dts.length, dds.length);
			for (var j = 0; j < n; j++) {
				labels.push(dts[j].innerText);
				values.push(dds[j].innerText);
			}
		}
		return {labels: labels, values: values};
	})()
`

const expiredCheckJS = `
	document.querySelector('.listing-expired, .property-sold-notice') !== null
`

// Extractor pulls raw label/value fields out of listing detail pages.
// It is keyed to the dt/dd detail table layout of the listing source.
type Extractor struct {
	logger  *logrus.Logger
	timeout time.Duration
}

func NewExtractor(timeout time.Duration, logger *logrus.Logger) *Extractor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Extractor{logger: logger, timeout: timeout}
}

type detailFields struct {
	Labels []string `json:"labels"`
	Values []string `json:"values"`
}

// ExtractDetail scrapes one detail page into a raw listing. The page
// url is recorded under the "url" key, which later becomes the dedup
// key in the store.
func (e *Extractor) ExtractDetail(browserCtx context.Context, pageURL string) (models.RawListing, error) {
	ctx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, e.timeout)
	defer cancelTimeout()

	var fields detailFields
	err := chromedp.Run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(detailTableSelector, chromedp.ByQuery),
		chromedp.Evaluate(extractFieldsJS, &fields),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to extract detail page %s: %w", pageURL, err)
	}

	if len(fields.Labels) == 0 {
		return nil, fmt.Errorf("detail page %s has an empty detail table", pageURL)
	}

	raw := make(models.RawListing, len(fields.Labels)+1)
	for i, label := range fields.Labels {
		raw[label] = fields.Values[i]
	}
	raw["url"] = pageURL

	e.logger.WithFields(logrus.Fields{
		"url":    pageURL,
		"fields": len(fields.Labels),
	}).Debug("Extracted detail page")

	return raw, nil
}

// CheckExpired reports whether the page at url carries the expired
// marker. A navigation failure is an error, not an expiry signal, so
// flaky network conditions never retire live listings.
func (e *Extractor) CheckExpired(browserCtx context.Context, pageURL string) (bool, error) {
	ctx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, e.timeout)
	defer cancelTimeout()

	var expired bool
	err := chromedp.Run(ctx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(expiredCheckJS, &expired),
	)
	if err != nil {
		return false, fmt.Errorf("failed to check listing %s: %w", pageURL, err)
	}
	return expired, nil
}
