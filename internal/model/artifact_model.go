package model

import (
	"encoding/json"
	"time"
)

// CrawlRecord is the database row of a finished crawl run. The full result
// document is stored as JSON alongside the queryable counters.
type CrawlRecord struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CrawlID          string    `gorm:"size:64;not null;uniqueIndex" json:"crawl_id"`
	StartURL         string    `gorm:"type:text;not null" json:"start_url"`
	TotalPages       int       `json:"total_pages"`
	SuccessfulCrawls int       `json:"successful_crawls"`
	FailedCrawls     int       `json:"failed_crawls"`
	MaxDepth         int       `json:"max_depth"`
	Document         string    `gorm:"type:longtext" json:"-"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the name of the table for CrawlRecord.
func (CrawlRecord) TableName() string { return "crawls" }

// CrawlRecordFromResult maps a CrawlResult to its database row.
func CrawlRecordFromResult(res *CrawlResult) (*CrawlRecord, error) {
	doc, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	return &CrawlRecord{
		CrawlID:          res.Metadata.CrawlID,
		StartURL:         res.Metadata.StartURL,
		TotalPages:       res.Metadata.TotalPages,
		SuccessfulCrawls: res.Metadata.SuccessfulCrawls,
		FailedCrawls:     res.Metadata.FailedCrawls,
		MaxDepth:         res.Metadata.MaxDepth,
		Document:         string(doc),
		StartedAt:        res.Metadata.StartTime,
		FinishedAt:       res.Metadata.EndTime,
	}, nil
}

// Result unmarshals the stored document back into a CrawlResult.
func (r *CrawlRecord) Result() (*CrawlResult, error) {
	var res CrawlResult
	if err := json.Unmarshal([]byte(r.Document), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// PageRecord is one crawled page row, kept queryable outside the document.
type PageRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CrawlID    string    `gorm:"size:64;not null;index" json:"crawl_id"`
	URL        string    `gorm:"type:text;not null" json:"url"`
	Title      string    `gorm:"type:text" json:"title"`
	StatusCode int       `json:"status_code"`
	Depth      int       `json:"depth"`
	ParentURL  string    `gorm:"type:text" json:"parent_url"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the name of the table for PageRecord.
func (PageRecord) TableName() string { return "pages" }

// LinkRecord is one discovered edge row.
type LinkRecord struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CrawlID     string    `gorm:"size:64;not null;index" json:"crawl_id"`
	FromURL     string    `gorm:"type:text;not null" json:"from_url"`
	ToURL       string    `gorm:"type:text;not null" json:"to_url"`
	Label       string    `gorm:"type:text" json:"label"`
	Selector    string    `gorm:"type:text" json:"selector"`
	ElementType string    `gorm:"size:32" json:"element_type"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the name of the table for LinkRecord.
func (LinkRecord) TableName() string { return "links" }

// ErrorRecord is one failed page visit row.
type ErrorRecord struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CrawlID       string    `gorm:"size:64;not null;index" json:"crawl_id"`
	URL           string    `gorm:"type:text;not null" json:"url"`
	Type          string    `gorm:"size:32" json:"error_type"`
	Message       string    `gorm:"type:text" json:"message"`
	RetryAttempts int       `json:"retry_attempts"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the name of the table for ErrorRecord.
func (ErrorRecord) TableName() string { return "crawl_errors" }

// SessionRecord is the database row of a stopped recording session.
type SessionRecord struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string     `gorm:"size:64;not null;uniqueIndex" json:"session_id"`
	StartURL    string     `gorm:"type:text;not null" json:"start_url"`
	ActionCount int        `json:"action_count"`
	ModalCount  int        `json:"modal_count"`
	Document    string     `gorm:"type:longtext" json:"-"`
	StartedAt   time.Time  `json:"started_at"`
	StoppedAt   *time.Time `json:"stopped_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the name of the table for SessionRecord.
func (SessionRecord) TableName() string { return "recording_sessions" }

// SessionRecordFromSession maps a RecordingSession to its database row.
func SessionRecordFromSession(s *RecordingSession) (*SessionRecord, error) {
	doc, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return &SessionRecord{
		SessionID:   s.ID,
		StartURL:    s.StartURL,
		ActionCount: len(s.Actions),
		ModalCount:  len(s.Modals),
		Document:    string(doc),
		StartedAt:   s.StartTime,
		StoppedAt:   s.EndTime,
	}, nil
}
