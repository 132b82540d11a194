package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"jpestate/server/internal/query"
	"jpestate/server/internal/table"
)

const extractorSystemPrompt = `You translate natural-language requests about Japanese real-estate listings into a JSON filter object.

Reply with a single JSON object and nothing else. Recognized keys:
  min_price, max_price   (numbers, Japanese yen, applied to price_yen)
  min_size, max_size     (numbers, square meters)
  zoning, structure, occupancy, nearest_station  (substring matches)
  limit                  (number of results)
  sort_by, sort_order    (column name, "asc" or "desc")

Only set keys the request clearly implies. Amounts like "100M yen" mean 100000000. If the request implies no filters at all, reply with {}.

The database profile below describes the available columns and their value ranges; use it to pick realistic bounds and spellings.`

// FilterExtractor turns free-text search requests into PropertyQuery
// values using a language model.
type FilterExtractor struct {
	llm    LLM
	logger *logrus.Logger
}

func NewFilterExtractor(llm LLM, logger *logrus.Logger) *FilterExtractor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &FilterExtractor{llm: llm, logger: logger}
}

// ExtractFilters asks the model for a filter object. A reply that is
// not valid JSON degrades to the empty query, so the caller still
// returns results bounded by the default limit instead of failing.
func (e *FilterExtractor) ExtractFilters(ctx context.Context, request string, profile table.DbProfile) (query.PropertyQuery, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return query.PropertyQuery{}, fmt.Errorf("failed to encode database profile: %v", err)
	}

	system := extractorSystemPrompt + "\n\nDatabase profile:\n" + string(profileJSON)

	reply, err := e.llm.Invoke(ctx, system, request)
	if err != nil {
		return query.PropertyQuery{}, fmt.Errorf("filter extraction failed: %w", err)
	}

	var q query.PropertyQuery
	if err := json.Unmarshal([]byte(extractJSON(reply)), &q); err != nil {
		e.logger.WithError(err).WithField("reply", reply).
			Warn("Model reply was not a filter object, falling back to unfiltered query")
		return query.PropertyQuery{}, nil
	}
	return q, nil
}

// extractJSON strips markdown fences and surrounding prose that chat
// models like to wrap JSON replies in.
func extractJSON(reply string) string {
	reply = strings.TrimSpace(reply)

	if start := strings.Index(reply, "{"); start >= 0 {
		if end := strings.LastIndex(reply, "}"); end > start {
			return reply[start : end+1]
		}
	}
	return reply
}
