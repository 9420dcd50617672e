// Package models defines data structures for the catalog scraper.
package models

import "time"

// Product is one row of the catalog table. The exported column names match
// the site's Spanish labels. Name, Category, Section and ImageURL are
// optional: an empty string means the corresponding markup element was
// missing or empty on the page.
type Product struct {
	Name        string `csv:"nombre" json:"nombre,omitempty"`
	Category    string `csv:"categoría" json:"categoría,omitempty"`
	Description string `csv:"descripción" json:"descripción"`
	Section     string `csv:"sección" json:"sección,omitempty"`
	ImageURL    string `csv:"url" json:"url,omitempty"`
}

// PageTable holds the products extracted from a single catalog page.
type PageTable struct {
	Page int
	Rows []*Product
}

// PageResult is the outcome of fetching and extracting one page: either a
// table or the reason the page was dropped. A nil Err with a nil Table never
// occurs; pages that were never fetched simply have no PageResult.
type PageResult struct {
	Page  int
	Table *PageTable
	Err   error
}

// ScrapeResult summarises one run. Products is the combined table in
// ascending page order.
type ScrapeResult struct {
	Products     []*Product
	StartTime    time.Time
	EndTime      time.Time
	RequestCount int
	PageCount    int
	ErrorCount   int
	SkippedPages []int
	FailedURLs   []string
	ErrorsByType map[string]int
}
