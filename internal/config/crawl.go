package config

import (
	"errors"
	"fmt"
	"time"
)

// Default crawl tuning values. Intervals are coarse on purpose: the source
// is rate limited and the ledger backoff does the fine adjustment.
const (
	// DefaultRunInterval is the starting interval between full crawl runs.
	DefaultRunInterval = 6 * time.Hour
	// DefaultRunAdjustmentFactor shrinks/grows the run interval after a
	// successful/failed run.
	DefaultRunAdjustmentFactor = 0.3

	// DefaultQueryAdjustmentFactor shrinks/grows a query target's revisit
	// interval depending on whether the visit produced new events.
	DefaultQueryAdjustmentFactor = 0.3
	// DefaultInitialQueryInterval seeds the revisit interval for a query
	// target's first successful visit.
	DefaultInitialQueryInterval = 24 * time.Hour
	// DefaultStaleWindow retires a query target that has produced nothing
	// new for this long.
	DefaultStaleWindow = 90 * 24 * time.Hour

	// DefaultEventApproachFactor positions an event page's next visit
	// proportionally between now and the event start.
	DefaultEventApproachFactor = 0.5
	// DefaultTooCloseWindow blocks automatic revisits this close to the
	// event start; the expiry sweep takes over from there.
	DefaultTooCloseWindow = 12 * time.Hour

	// DefaultFirstRetryDelay reschedules a target whose very first scrape
	// failed. Short: first-visit failures are usually transient.
	DefaultFirstRetryDelay = 30 * time.Minute

	// DefaultCapabilityErrorThreshold is the number of consecutive failures
	// of one scraper capability tolerated before the cycle aborts.
	DefaultCapabilityErrorThreshold = 5

	// DefaultProximityRadiusKm bounds how far an event may be from the
	// nearest known group.
	DefaultProximityRadiusKm = 50.0

	// DefaultScrapeTimeout bounds a single scraper call.
	DefaultScrapeTimeout = 2 * time.Minute
)

// CrawlConfig holds the tuning knobs for the three scheduling levels and the
// classification pipeline.
type CrawlConfig struct {
	// SourceBaseURL is the root of the event site search targets are built
	// against, e.g. "https://social.example".
	SourceBaseURL string `mapstructure:"source_base_url" yaml:"source_base_url"`
	// Cities lists the cities to crawl, highest community activity first.
	Cities []string `mapstructure:"cities" yaml:"cities"`
	// SearchTerms seed one search target per term and category filter.
	SearchTerms []string `mapstructure:"search_terms" yaml:"search_terms"`
	// CategoryFilters are combined with each search term when seeding.
	CategoryFilters []string `mapstructure:"category_filters" yaml:"category_filters"`
	// RelevanceKeywords gate classification: an event must mention at least
	// one of them in its name, location, or description.
	RelevanceKeywords []string `mapstructure:"relevance_keywords" yaml:"relevance_keywords"`

	RunInterval         time.Duration `mapstructure:"run_interval"          yaml:"run_interval"`
	RunAdjustmentFactor float64       `mapstructure:"run_adjustment_factor" yaml:"run_adjustment_factor"`

	QueryAdjustmentFactor float64       `mapstructure:"query_adjustment_factor" yaml:"query_adjustment_factor"`
	InitialQueryInterval  time.Duration `mapstructure:"initial_query_interval"  yaml:"initial_query_interval"`
	StaleWindow           time.Duration `mapstructure:"stale_window"            yaml:"stale_window"`

	EventApproachFactor float64       `mapstructure:"event_approach_factor" yaml:"event_approach_factor"`
	TooCloseWindow      time.Duration `mapstructure:"too_close_window"      yaml:"too_close_window"`

	FirstRetryDelay time.Duration `mapstructure:"first_retry_delay" yaml:"first_retry_delay"`

	CapabilityErrorThreshold int `mapstructure:"capability_error_threshold" yaml:"capability_error_threshold"`

	ProximityRadiusKm float64 `mapstructure:"proximity_radius_km" yaml:"proximity_radius_km"`

	ScrapeTimeout time.Duration `mapstructure:"scrape_timeout" yaml:"scrape_timeout"`
}

// SetDefaults applies default values to unset fields.
func (c *CrawlConfig) SetDefaults() {
	if c.RunInterval == 0 {
		c.RunInterval = DefaultRunInterval
	}
	if c.RunAdjustmentFactor == 0 {
		c.RunAdjustmentFactor = DefaultRunAdjustmentFactor
	}
	if c.QueryAdjustmentFactor == 0 {
		c.QueryAdjustmentFactor = DefaultQueryAdjustmentFactor
	}
	if c.InitialQueryInterval == 0 {
		c.InitialQueryInterval = DefaultInitialQueryInterval
	}
	if c.StaleWindow == 0 {
		c.StaleWindow = DefaultStaleWindow
	}
	if c.EventApproachFactor == 0 {
		c.EventApproachFactor = DefaultEventApproachFactor
	}
	if c.TooCloseWindow == 0 {
		c.TooCloseWindow = DefaultTooCloseWindow
	}
	if c.FirstRetryDelay == 0 {
		c.FirstRetryDelay = DefaultFirstRetryDelay
	}
	if c.CapabilityErrorThreshold == 0 {
		c.CapabilityErrorThreshold = DefaultCapabilityErrorThreshold
	}
	if c.ProximityRadiusKm == 0 {
		c.ProximityRadiusKm = DefaultProximityRadiusKm
	}
	if c.ScrapeTimeout == 0 {
		c.ScrapeTimeout = DefaultScrapeTimeout
	}
}

// Validate checks crawl tuning for values the scheduler cannot work with.
func (c *CrawlConfig) Validate() error {
	if c.SourceBaseURL == "" {
		return errors.New("source_base_url must be configured")
	}
	if len(c.Cities) == 0 {
		return errors.New("at least one city must be configured")
	}
	if len(c.SearchTerms) == 0 {
		return errors.New("at least one search term must be configured")
	}

	if err := durationPositive("run_interval", c.RunInterval); err != nil {
		return err
	}
	if c.RunAdjustmentFactor <= 0 || c.RunAdjustmentFactor >= 1 {
		return fmt.Errorf("run_adjustment_factor must be in (0, 1), got %g", c.RunAdjustmentFactor)
	}
	if c.QueryAdjustmentFactor <= 0 || c.QueryAdjustmentFactor >= 1 {
		return fmt.Errorf("query_adjustment_factor must be in (0, 1), got %g", c.QueryAdjustmentFactor)
	}
	if err := durationPositive("initial_query_interval", c.InitialQueryInterval); err != nil {
		return err
	}
	if err := durationPositive("stale_window", c.StaleWindow); err != nil {
		return err
	}
	if c.EventApproachFactor <= 0 || c.EventApproachFactor >= 1 {
		return fmt.Errorf("event_approach_factor must be in (0, 1), got %g", c.EventApproachFactor)
	}
	if err := durationPositive("too_close_window", c.TooCloseWindow); err != nil {
		return err
	}
	if err := durationPositive("first_retry_delay", c.FirstRetryDelay); err != nil {
		return err
	}
	if c.CapabilityErrorThreshold <= 0 {
		return fmt.Errorf("capability_error_threshold must be positive, got %d", c.CapabilityErrorThreshold)
	}
	if c.ProximityRadiusKm <= 0 {
		return fmt.Errorf("proximity_radius_km must be positive, got %g", c.ProximityRadiusKm)
	}
	return nil
}
