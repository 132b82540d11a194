package api

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"jpestate/server/config"
	"jpestate/server/internal/agent"
	"jpestate/server/internal/database"
	"jpestate/server/internal/geometry"
	"jpestate/server/internal/query"
	"jpestate/server/internal/scraping"
	"jpestate/server/internal/table"
	"jpestate/server/internal/updater"
)

// Deps are the collaborators a Handler needs. Everything is injected
// so tests can swap any piece.
type Deps struct {
	Store        database.Store
	Materializer *table.Materializer
	Extractor    *agent.FilterExtractor
	Scraper      *scraping.Manager
	Updater      *updater.Updater
	Wards        *geometry.WardManager
	Seeds        *config.SeedList
	Logger       *logrus.Logger
}

type Handler struct {
	deps   Deps
	logger *logrus.Logger

	mu      sync.RWMutex
	table   *table.WideTable
	profile table.DbProfile
}

type AgentSearchRequest struct {
	Query string `json:"query" binding:"required"`
}

type ScrapeRequest struct {
	URLs []string `json:"urls"`
}

type DeleteAllRequest struct {
	Confirmation string `json:"confirmation"`
}

func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		deps:   deps,
		logger: logger,
		table:  (&table.WideTable{}).Reindexed(),
	}
}

// ReloadTable rebuilds the in-memory query table and column profile
// from the store and swaps them in atomically.
func (h *Handler) ReloadTable() error {
	t, err := h.deps.Materializer.Load(false)
	if err != nil {
		return err
	}
	profile := table.Profile(t)

	h.mu.Lock()
	h.table = t
	h.profile = profile
	h.mu.Unlock()
	return nil
}

func (h *Handler) snapshot() (*table.WideTable, table.DbProfile) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.table, h.profile
}

// SearchProperties filters the listing table with a declarative query.
// Success is a bare array of records; failures come back as an error
// envelope object instead of an HTTP failure.
func (h *Handler) SearchProperties(c *gin.Context) {
	var q query.PropertyQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		h.logger.WithError(err).Error("Failed to parse search query")
		c.JSON(http.StatusOK, gin.H{"error": "Invalid search query: " + err.Error()})
		return
	}

	t, _ := h.snapshot()
	result, err := query.Apply(t, q)
	if err != nil {
		h.logger.WithError(err).Error("Search failed")
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result.Records())
}

// GetProperty returns one listing by id as a flat record, straight
// from the store.
func (h *Handler) GetProperty(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": "Invalid listing id"})
		return
	}

	record, err := h.deps.Store.GetByID(id)
	if err == database.ErrNotFound {
		c.JSON(http.StatusOK, gin.H{"error": "Listing not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load listing")
		c.JSON(http.StatusOK, gin.H{"error": "Failed to load listing"})
		return
	}

	c.JSON(http.StatusOK, record.Flattened())
}

// GetOptions returns the distinct values of a column, numbers before
// text, each group sorted ascending.
func (h *Handler) GetOptions(c *gin.Context) {
	column := c.Param("column")

	t, _ := h.snapshot()
	col, ok := t.ColumnIndex(column)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"error": "Unknown column: " + column})
		return
	}

	numSeen := make(map[float64]struct{})
	textSeen := make(map[string]struct{})
	var nums []float64
	var texts []string
	for i := range t.Rows {
		switch cell := t.Cell(i, col); cell.Kind {
		case table.Numeric:
			if _, dup := numSeen[cell.Num]; dup {
				continue
			}
			numSeen[cell.Num] = struct{}{}
			nums = append(nums, cell.Num)
		case table.Text:
			if _, dup := textSeen[cell.Str]; dup {
				continue
			}
			textSeen[cell.Str] = struct{}{}
			texts = append(texts, cell.Str)
		}
	}
	sort.Float64s(nums)
	sort.Strings(texts)

	options := make([]interface{}, 0, len(nums)+len(texts))
	for _, n := range nums {
		options = append(options, table.NumberValue(n).JSONValue())
	}
	for _, s := range texts {
		options = append(options, s)
	}

	c.JSON(http.StatusOK, gin.H{
		"column":  column,
		"options": options,
	})
}

// GetProfile returns the column profile of the current table.
func (h *Handler) GetProfile(c *gin.Context) {
	_, profile := h.snapshot()
	c.JSON(http.StatusOK, profile)
}

// AgentSearch extracts filters from a free-text request and runs them.
func (h *Handler) AgentSearch(c *gin.Context) {
	var req AgentSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": "Missing query text"})
		return
	}

	t, profile := h.snapshot()
	q, err := h.deps.Extractor.ExtractFilters(c.Request.Context(), req.Query, profile)
	if err != nil {
		h.logger.WithError(err).Error("Filter extraction failed")
		c.JSON(http.StatusOK, gin.H{"error": "Filter extraction failed"})
		return
	}

	result, err := query.Apply(t, q)
	if err != nil {
		h.logger.WithError(err).Error("Agent search failed")
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result.Records())
}

// TriggerScrape starts a scrape run over the posted URLs, or the seed
// list when none are given.
func (h *Handler) TriggerScrape(c *gin.Context) {
	var req ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scrape request"})
		return
	}

	urls := req.URLs
	if len(urls) == 0 {
		urls = h.deps.Seeds.URLs()
	}
	if len(urls) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No URLs to scrape"})
		return
	}
	if h.deps.Scraper.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"error": "A scrape run is already in progress"})
		return
	}

	go func() {
		if err := h.deps.Scraper.ScrapeURLs(context.Background(), urls); err != nil {
			h.logger.WithError(err).Error("Scrape run failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status": "started",
		"urls":   len(urls),
	})
}

// TriggerRevalidate checks every active listing against the live
// source and expires the delisted ones.
func (h *Handler) TriggerRevalidate(c *gin.Context) {
	browserCtx, cancel := h.deps.Scraper.NewBrowserContext(c.Request.Context())
	defer cancel()

	summary, err := h.deps.Updater.Revalidate(browserCtx, h.deps.Scraper.Extractor())
	if err != nil {
		h.logger.WithError(err).Error("Revalidation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Revalidation failed"})
		return
	}

	if err := h.ReloadTable(); err != nil {
		h.logger.WithError(err).Error("Failed to reload table after revalidation")
	}

	c.JSON(http.StatusOK, summary)
}

// TriggerReload rebuilds the query table from the store.
func (h *Handler) TriggerReload(c *gin.Context) {
	if err := h.ReloadTable(); err != nil {
		h.logger.WithError(err).Error("Failed to reload table")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload table"})
		return
	}

	t, _ := h.snapshot()
	c.JSON(http.StatusOK, gin.H{
		"rows":    len(t.Rows),
		"columns": len(t.Columns),
	})
}

// GetWardHulls returns GeoJSON boundary hulls of the geocoded listings
// grouped by ward.
func (h *Handler) GetWardHulls(c *gin.Context) {
	fc, err := h.deps.Wards.GenerateHulls()
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate ward hulls")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate ward hulls"})
		return
	}
	c.JSON(http.StatusOK, fc)
}

// DeleteAllListings wipes the store. The request must repeat the exact
// confirmation phrase.
func (h *Handler) DeleteAllListings(c *gin.Context) {
	var req DeleteAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing confirmation"})
		return
	}

	deleted, err := h.deps.Store.DeleteAll(req.Confirmation)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.ReloadTable(); err != nil {
		h.logger.WithError(err).Error("Failed to reload table after wipe")
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
