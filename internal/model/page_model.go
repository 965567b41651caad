package model

import "time"

// PageData is the extracted content of one successfully navigated URL.
// It is immutable once appended to the run's page list.
type PageData struct {
	URL           string        `json:"url"`
	Title         string        `json:"title"`
	StatusCode    int           `json:"status_code"`
	Depth         int           `json:"depth"`
	ParentURL     string        `json:"parent_url,omitempty"`
	DiscoveryPath []string      `json:"discovery_path,omitempty"`
	Content       PageContent   `json:"content"`
	Technical     TechnicalData `json:"technical_data"`
	FetchedAt     time.Time     `json:"fetched_at"`
}

// PageContent holds the mode-dependent extraction payload. Crawl mode fills
// only the navigation-relevant fields; scrape mode fills everything.
type PageContent struct {
	Text       string          `json:"text,omitempty"`
	Headings   []Heading       `json:"headings,omitempty"`
	Links      []LinkInfo      `json:"links,omitempty"`
	Images     []ImageInfo     `json:"images,omitempty"`
	Forms      []FormInfo      `json:"forms,omitempty"`
	Clickables []ClickableInfo `json:"clickables,omitempty"`
}

// Heading is one h1..h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// LinkInfo is an outbound link as found in the page content.
type LinkInfo struct {
	Href     string `json:"href"`
	Text     string `json:"text"`
	Selector string `json:"selector,omitempty"`
	External bool   `json:"external"`
}

// ImageInfo is one image reference.
type ImageInfo struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// FormInfo summarizes a form element.
type FormInfo struct {
	Selector    string   `json:"selector"`
	Action      string   `json:"action,omitempty"`
	Method      string   `json:"method,omitempty"`
	Inputs      []string `json:"inputs,omitempty"`
	HasPassword bool     `json:"has_password"`
}

// ClickableInfo is a non-anchor element that navigates via onclick or a
// data attribute.
type ClickableInfo struct {
	Selector string `json:"selector"`
	Tag      string `json:"tag"`
	Text     string `json:"text,omitempty"`
	Target   string `json:"target"`  // resolved destination URL
	Trigger  string `json:"trigger"` // "onclick", "data-href", "data-url"
}

// TechnicalData carries non-content page facts.
type TechnicalData struct {
	HTMLVersion   string `json:"html_version,omitempty"`
	ContentLength int    `json:"content_length"`
	Screenshot    string `json:"screenshot,omitempty"`
	LoadState     string `json:"load_state,omitempty"`
}
