package model

import (
	"time"
)

// CrawlMode selects how much of each page is extracted and whether a live
// recording session takes over after the first navigation.
type CrawlMode string

const (
	ModeCrawl  CrawlMode = "crawl"
	ModeScrape CrawlMode = "scrape"
	ModeRecord CrawlMode = "record"
)

// DomainRestrictions bounds which hosts a crawl may visit.
type DomainRestrictions struct {
	StayWithinDomain  bool     `json:"stay_within_domain"`
	IncludeSubdomains bool     `json:"include_subdomains"`
	AllowedDomains    []string `json:"allowed_domains,omitempty"`
}

// LoginCredentials are the form values used for best-effort login detection.
type LoginCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CrawlConfig holds the immutable parameters of one crawl run.
type CrawlConfig struct {
	StartURL           string             `json:"start_url"`
	MaxDepth           int                `json:"max_depth"`
	RateLimit          int                `json:"rate_limit"` // page starts per minute, 0 = unlimited
	Concurrency        int                `json:"concurrency"`
	Mode               CrawlMode          `json:"mode"`
	SampleMode         bool               `json:"sample_mode"`
	FollowLinkTags     []string           `json:"follow_link_tags,omitempty"`
	DomainRestrictions DomainRestrictions `json:"domain_restrictions"`
	LoginCredentials   *LoginCredentials  `json:"login_credentials,omitempty"`
	TrainingMode       bool               `json:"training_mode"`
	CustomHeaders      map[string]string  `json:"custom_headers,omitempty"`
	NavigationTimeout  time.Duration      `json:"navigation_timeout"`
	SettleDelay        time.Duration      `json:"settle_delay"`
}

// CrawlMetadata carries run-level counters, mutated as pages complete.
type CrawlMetadata struct {
	CrawlID          string    `json:"crawl_id"`
	StartURL         string    `json:"start_url"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	TotalPages       int       `json:"total_pages"`
	SuccessfulCrawls int       `json:"successful_crawls"`
	FailedCrawls     int       `json:"failed_crawls"`
	MaxDepth         int       `json:"max_depth"`
}

// ErrorType classifies a failed page visit.
type ErrorType string

const (
	ErrorTimeout    ErrorType = "timeout"
	ErrorNotFound   ErrorType = "404"
	ErrorJavaScript ErrorType = "javascript_error"
	ErrorOther      ErrorType = "other"
)

// CrawlError records one failed page visit; the run continues.
type CrawlError struct {
	URL           string    `json:"url"`
	Type          ErrorType `json:"error_type"`
	Message       string    `json:"message"`
	RetryAttempts int       `json:"retry_attempts"`
	Timestamp     time.Time `json:"timestamp"`
}

// CrawlEvent is one entry of the human-readable audit trail.
type CrawlEvent struct {
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// LinkRelationship is a discovered edge between two pages.
type LinkRelationship struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	Label       string    `json:"label"`
	Selector    string    `json:"selector"`
	ElementType string    `json:"element_type"`
	Position    int       `json:"position"`
	Timestamp   time.Time `json:"timestamp"`
}

// CrawlProgress is a point-in-time snapshot handed to the progress callback.
type CrawlProgress struct {
	CrawlID       string          `json:"crawl_id"`
	CurrentURL    string          `json:"current_url"`
	Visited       int             `json:"visited"`
	Queued        int             `json:"queued"`
	Successful    int             `json:"successful"`
	Failed        int             `json:"failed"`
	Done          bool            `json:"done"`
	RecentActions []BrowserAction `json:"recent_actions,omitempty"`
}

// CrawlResult is the persisted document of a finished run.
type CrawlResult struct {
	Metadata CrawlMetadata      `json:"crawl_metadata"`
	Pages    []PageData         `json:"pages"`
	Links    []LinkRelationship `json:"link_relationships"`
	Errors   []CrawlError       `json:"errors"`
	Events   []CrawlEvent       `json:"events"`
}
