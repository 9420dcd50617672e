// Package scraper drives the concurrent fetch, extraction and aggregation of
// catalog pages.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/davfranco1/atrezzo-scraper/config"
	"github.com/davfranco1/atrezzo-scraper/models"
	"github.com/davfranco1/atrezzo-scraper/parser"
	"github.com/davfranco1/atrezzo-scraper/pipeline"
	"github.com/gocolly/colly/v2"
)

// Scraper owns the colly collector for one run. The collector is the shared
// connection context: it must not be reused across concurrent runs.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics

	requestCount int64
	errorCount   int64

	mu           sync.Mutex
	docs         map[int]*goquery.Document
	parseErrs    map[int]error
	failedURLs   []string
	errorsByType map[string]int

	handlersOnce sync.Once
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	// The target is a single fixed template; robots.txt is out of scope.
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
	}); err != nil {
		return nil, fmt.Errorf("configure parallelism limit: %w", err)
	}

	return &Scraper{
		cfg:          cfg,
		collector:    collector,
		docs:         make(map[int]*goquery.Document),
		parseErrs:    make(map[int]error),
		errorsByType: make(map[string]int),
		Metrics:      NewMetrics(),
	}, nil
}

// Run fetches pages 1..Pages-1 concurrently, waits for the whole batch to
// settle, extracts each fetched document, and aggregates the page tables in
// ascending page order. Successful rows are also streamed to p, page by
// page, when p is non-nil.
//
// Page-level problems never fail the run; they degrade the combined table
// and are reported through the result counters.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.configureHandlers()

	start := time.Now()
	for page := 1; page < s.cfg.Pages; page++ {
		if ctx.Err() != nil {
			slog.Info("run cancelled, no further pages submitted", slog.Int("next_page", page))
			break
		}
		s.visitPage(page)
	}
	s.collector.Wait()

	pageResults := s.extractAll()
	combined, skipped := aggregate(pageResults)
	for range skipped {
		s.Metrics.IncPageSkipped()
	}
	s.Metrics.AddProducts(len(combined))

	if p != nil {
		for _, res := range pageResults {
			if res.Err != nil {
				continue
			}
			if err := p.Process(res.Table.Rows); err != nil && err != pipeline.ErrPipelineClosed {
				slog.Error("pipeline process error", slog.Int("page", res.Page), slog.Any("error", err))
			}
		}
	}

	return &models.ScrapeResult{
		Products:     combined,
		StartTime:    start,
		EndTime:      time.Now(),
		RequestCount: int(atomic.LoadInt64(&s.requestCount)),
		PageCount:    len(pageResults) - len(skipped),
		ErrorCount:   int(atomic.LoadInt64(&s.errorCount)),
		SkippedPages: skipped,
		FailedURLs:   s.snapshotFailedURLs(),
		ErrorsByType: s.snapshotErrors(),
	}, nil
}

func (s *Scraper) visitPage(page int) {
	rctx := colly.NewContext()
	rctx.Put("page", page)
	pageURL := s.cfg.PageURL(page)
	if err := s.collector.Request(http.MethodGet, pageURL, nil, rctx, nil); err != nil {
		s.recordFailure(pageURL, classifyError(err, 0))
	}
}

func (s *Scraper) configureHandlers() {
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(func(r *colly.Request) {
			r.Ctx.Put("start", time.Now())
			atomic.AddInt64(&s.requestCount, 1)
			s.Metrics.IncRequest("started")
		})

		s.collector.OnResponse(func(r *colly.Response) {
			if start, ok := r.Ctx.GetAny("start").(time.Time); ok {
				s.Metrics.ObserveDuration(time.Since(start))
			}
			page, ok := r.Ctx.GetAny("page").(int)
			if !ok {
				return
			}
			slog.Debug("page fetched",
				slog.Int("page", page),
				slog.Int("status", r.StatusCode),
				slog.Int("bytes", len(r.Body)),
			)

			doc, err := parser.ParseDocument(r.Body)
			s.mu.Lock()
			if err != nil {
				s.parseErrs[page] = err
			} else {
				s.docs[page] = doc
			}
			s.mu.Unlock()
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			statusCode := 0
			requestURL := ""
			if r != nil {
				statusCode = r.StatusCode
				if r.Request != nil && r.Request.URL != nil {
					requestURL = r.Request.URL.String()
				}
			}
			s.recordFailure(requestURL, classifyError(err, statusCode))
		})
	})
}

func (s *Scraper) recordFailure(requestURL string, err error) {
	atomic.AddInt64(&s.errorCount, 1)
	category := errorTypeLabel(err)

	s.mu.Lock()
	s.errorsByType[category]++
	s.failedURLs = append(s.failedURLs, requestURL)
	s.mu.Unlock()

	slog.Error("page request failed",
		slog.String("url", requestURL),
		slog.String("category", category),
		slog.Any("error", err),
	)
	s.Metrics.IncError(category)
}

// extractAll runs the extraction pass over every settled page in ascending
// page order. Pages whose fetch produced no document contribute no result at
// all; pages whose body could not be parsed or whose field lists were
// misaligned contribute a PageResult carrying the error.
func (s *Scraper) extractAll() []*models.PageResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []*models.PageResult
	for page := 1; page < s.cfg.Pages; page++ {
		if err, ok := s.parseErrs[page]; ok {
			results = append(results, &models.PageResult{Page: page, Err: err})
			continue
		}
		doc, ok := s.docs[page]
		if !ok {
			continue
		}
		table, err := parser.ExtractPage(doc, page, s.cfg.PageSize)
		if err != nil {
			results = append(results, &models.PageResult{Page: page, Err: err})
			continue
		}
		results = append(results, &models.PageResult{Page: page, Table: table})
	}
	return results
}

// aggregate concatenates the successful page tables in input order and
// collects the indices of dropped pages. Rows keep no cross-page identity.
func aggregate(results []*models.PageResult) (combined []*models.Product, skipped []int) {
	for _, res := range results {
		if res.Err != nil {
			slog.Error("dropping page",
				slog.Int("page", res.Page),
				slog.Any("error", res.Err),
			)
			skipped = append(skipped, res.Page)
			continue
		}
		combined = append(combined, res.Table.Rows...)
	}
	return combined, skipped
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}
