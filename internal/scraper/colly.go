package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	colly "github.com/gocolly/colly/v2"

	"github.com/jonesrussell/eventcrawl/internal/domain"
	"github.com/jonesrussell/eventcrawl/internal/logger"
)

// Collector defaults.
const (
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultRequestTimeout = 2 * time.Minute
	defaultRateLimit      = 2 * time.Second
)

// ErrNoEventData is returned when an event page yields no parseable data.
var ErrNoEventData = errors.New("no event data found on page")

// eventPathPattern matches links pointing at single event pages.
var eventPathPattern = regexp.MustCompile(`/events/\d+`)

// organizerPathPattern matches links pointing at organizer/group pages.
var organizerPathPattern = regexp.MustCompile(`/groups/[^/?#]+`)

// Config holds the collector settings for the colly scraper.
type Config struct {
	UserAgent      string
	RequestTimeout time.Duration
	RateLimit      time.Duration
}

// SetDefaults applies default values to unset fields.
func (c *Config) SetDefaults() {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = defaultRateLimit
	}
}

// CollyScraper implements Scraper with a colly collector per call.
type CollyScraper struct {
	cfg    Config
	logger logger.Logger
}

// NewCollyScraper creates a colly-backed scraper.
func NewCollyScraper(cfg Config, log logger.Logger) *CollyScraper {
	cfg.SetDefaults()
	return &CollyScraper{cfg: cfg, logger: log}
}

// newCollector builds a fresh collector. One collector per call keeps the
// scraper stateless; the ledger owns all dedup state.
func (s *CollyScraper) newCollector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(s.cfg.UserAgent),
		colly.MaxDepth(1),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.cfg.RequestTimeout)

	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Delay:       s.cfg.RateLimit,
		RandomDelay: s.cfg.RateLimit / 2,
	})

	return c
}

// ListEventURLsFromSearch returns candidate event URLs from a search results page.
func (s *CollyScraper) ListEventURLsFromSearch(ctx context.Context, searchURL string) ([]string, error) {
	return s.listEventURLs(ctx, searchURL)
}

// ListEventURLsFromOrganizer returns candidate event URLs from an organizer page.
func (s *CollyScraper) ListEventURLsFromOrganizer(ctx context.Context, organizerURL string) ([]string, error) {
	return s.listEventURLs(ctx, organizerURL)
}

// listEventURLs collects all event page links from a listing page.
func (s *CollyScraper) listEventURLs(ctx context.Context, pageURL string) ([]string, error) {
	c := s.newCollector(ctx)

	seen := make(map[string]struct{})
	var urls []string

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Request.AbsoluteURL(e.Attr("href"))
		if !eventPathPattern.MatchString(href) {
			return
		}

		normalized, err := normalizeURL(href)
		if err != nil {
			return
		}
		if _, dup := seen[normalized]; dup {
			return
		}
		seen[normalized] = struct{}{}
		urls = append(urls, normalized)
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("visit listing page %s: %w", pageURL, err)
	}
	c.Wait()

	s.logger.Debug("Listed event URLs",
		logger.String("page", pageURL),
		logger.Int("count", len(urls)),
	)
	return urls, nil
}

// FetchOrganizerURL returns the organizer page linked from an event page.
func (s *CollyScraper) FetchOrganizerURL(ctx context.Context, eventURL string) (string, error) {
	c := s.newCollector(ctx)

	var organizerURL string
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if organizerURL != "" {
			return
		}
		href := e.Request.AbsoluteURL(e.Attr("href"))
		if !organizerPathPattern.MatchString(href) {
			return
		}
		if normalized, err := normalizeURL(href); err == nil {
			organizerURL = normalized
		}
	})

	if err := c.Visit(eventURL); err != nil {
		return "", fmt.Errorf("visit event page %s: %w", eventURL, err)
	}
	c.Wait()

	return organizerURL, nil
}

// jsonLDEvent mirrors the schema.org Event JSON-LD block the source embeds
// in event pages.
type jsonLDEvent struct {
	Type        string `json:"@type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Location    struct {
		Name string `json:"name"`
		Geo  struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"geo"`
	} `json:"location"`
	InterestCount int `json:"interestCount"`
}

// FetchEventData extracts structured event data from an event page. The
// JSON-LD block is authoritative; Open Graph meta tags are the fallback, and
// pages with neither yield ErrNoEventData.
func (s *CollyScraper) FetchEventData(ctx context.Context, eventURL string) (*domain.EventData, error) {
	c := s.newCollector(ctx)

	var data *domain.EventData
	var fallback *domain.EventData
	var organizerURL string

	c.OnHTML(`script[type="application/ld+json"]`, func(e *colly.HTMLElement) {
		if data != nil {
			return
		}

		var block jsonLDEvent
		if err := json.Unmarshal([]byte(e.Text), &block); err != nil {
			return
		}
		if !strings.EqualFold(block.Type, "Event") {
			return
		}

		data = s.eventDataFromJSONLD(eventURL, &block)
	})

	c.OnHTML("head", func(e *colly.HTMLElement) {
		if fallback == nil {
			fallback = s.eventDataFromMeta(eventURL, e.DOM)
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if organizerURL != "" {
			return
		}
		href := e.Request.AbsoluteURL(e.Attr("href"))
		if organizerPathPattern.MatchString(href) {
			if normalized, err := normalizeURL(href); err == nil {
				organizerURL = normalized
			}
		}
	})

	if err := c.Visit(eventURL); err != nil {
		return nil, fmt.Errorf("visit event page %s: %w", eventURL, err)
	}
	c.Wait()

	if data == nil {
		data = fallback
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEventData, eventURL)
	}

	data.OrganizerURL = organizerURL
	return data, nil
}

// eventDataFromJSONLD converts a parsed JSON-LD block into EventData.
func (s *CollyScraper) eventDataFromJSONLD(eventURL string, block *jsonLDEvent) *domain.EventData {
	data := &domain.EventData{
		URL:           eventURL,
		Name:          block.Name,
		Description:   block.Description,
		LocationName:  block.Location.Name,
		InterestCount: block.InterestCount,
	}

	if start, err := time.Parse(time.RFC3339, block.StartDate); err == nil {
		data.StartTime = &start
	}
	if end, err := time.Parse(time.RFC3339, block.EndDate); err == nil {
		data.EndTime = &end
	}

	if block.Location.Geo.Latitude != 0 || block.Location.Geo.Longitude != 0 {
		data.Coordinates = &domain.Coordinates{
			Latitude:  block.Location.Geo.Latitude,
			Longitude: block.Location.Geo.Longitude,
		}
	}

	return data
}

// eventDataFromMeta builds EventData from Open Graph meta tags. Pages
// rendered without a JSON-LD block still carry og: tags, though those never
// include coordinates or interest counts.
func (s *CollyScraper) eventDataFromMeta(eventURL string, head *goquery.Selection) *domain.EventData {
	name := strings.TrimSpace(head.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	if name == "" {
		return nil
	}

	data := &domain.EventData{
		URL:          eventURL,
		Name:         name,
		Description:  strings.TrimSpace(head.Find(`meta[property="og:description"]`).AttrOr("content", "")),
		LocationName: strings.TrimSpace(head.Find(`meta[property="og:locality"]`).AttrOr("content", "")),
	}

	startRaw := head.Find(`meta[property="event:start_time"]`).AttrOr("content", "")
	if start, err := time.Parse(time.RFC3339, startRaw); err == nil {
		data.StartTime = &start
	}

	return data
}

// normalizeURL strips query parameters and fragments so the same page
// reached through different tracking links dedups to one ledger row.
func normalizeURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse URL %q: %w", raw, err)
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")

	return parsed.String(), nil
}
