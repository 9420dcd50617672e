// Package parser turns raw catalog pages into aligned product tables.
//
// Extraction is positional: five field lists are collected independently
// from the page and zipped by index. The site renders one product block, one
// section box and one image container per product, plus exactly one
// description paragraph per catalog slot, so on a well-formed page all lists
// line up. Nothing correlates the lists by key; a page whose markup deviates
// fails the alignment check and is dropped as a whole.
package parser

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/davfranco1/atrezzo-scraper/models"
)

// Selectors fixed by the site template.
const (
	productBlockSelector = "div.product-slide-entry.shift-image"
	productNameSelector  = "a.title"
	productTagSelector   = "a.tag"
	sectionBlockSelector = "div.cat-sec-box"
	imageBlockSelector   = "div.product-image"
)

// AlignmentError reports a page whose independently collected field lists
// disagree in length and therefore cannot be zipped into rows.
type AlignmentError struct {
	Products     int
	Sections     int
	Descriptions int
	Images       int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("misaligned field lists: products=%d sections=%d descriptions=%d images=%d",
		e.Products, e.Sections, e.Descriptions, e.Images)
}

// ParseDocument wraps a raw HTML body into a queryable document tree.
func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// ExtractPage collects the five field lists from one parsed page and zips
// them into a PageTable. pageSize is the catalog page size; the description
// pass keeps only the first pageSize paragraphs in document order. Missing
// per-product elements yield empty fields, never an error. ExtractPage is a
// pure function of the markup.
func ExtractPage(doc *goquery.Document, page, pageSize int) (*models.PageTable, error) {
	names, categories := extractProducts(doc)
	sections := extractSections(doc)
	descriptions := extractDescriptions(doc, pageSize)
	images := extractImages(doc)

	n := len(names)
	if len(sections) != n || len(descriptions) != n || len(images) != n {
		return nil, &AlignmentError{
			Products:     n,
			Sections:     len(sections),
			Descriptions: len(descriptions),
			Images:       len(images),
		}
	}

	rows := make([]*models.Product, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, &models.Product{
			Name:        names[i],
			Category:    categories[i],
			Description: descriptions[i],
			Section:     sections[i],
			ImageURL:    images[i],
		})
	}
	return &models.PageTable{Page: page, Rows: rows}, nil
}

// extractProducts walks the product blocks and reads name and category from
// each. The two passes share the block list, so both slices always have one
// entry per block; a missing child element leaves that field empty without
// affecting the other.
func extractProducts(doc *goquery.Document) (names, categories []string) {
	doc.Find(productBlockSelector).Each(func(_ int, block *goquery.Selection) {
		names = append(names, firstText(block, productNameSelector))
		categories = append(categories, firstText(block, productTagSelector))
	})
	return names, categories
}

// extractSections keeps a section box's text only when it has visible
// content; the site renders an effectively empty placeholder box for
// products without a section. Text is kept verbatim, whitespace included.
func extractSections(doc *goquery.Document) []string {
	var sections []string
	doc.Find(sectionBlockSelector).Each(func(_ int, box *goquery.Selection) {
		text := box.Text()
		if utf8.RuneCountInString(text) > 1 {
			sections = append(sections, text)
		} else {
			sections = append(sections, "")
		}
	})
	return sections
}

// extractDescriptions collects every paragraph's text in document order and
// truncates to the catalog page size, discarding trailing filler paragraphs.
func extractDescriptions(doc *goquery.Document, pageSize int) []string {
	var descriptions []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		descriptions = append(descriptions, p.Text())
	})
	if len(descriptions) > pageSize {
		descriptions = descriptions[:pageSize]
	}
	return descriptions
}

// extractImages reads the nested image source from each image container.
func extractImages(doc *goquery.Document) []string {
	var images []string
	doc.Find(imageBlockSelector).Each(func(_ int, container *goquery.Selection) {
		src, _ := container.Find("img").First().Attr("src")
		images = append(images, src)
	})
	return images
}

func firstText(s *goquery.Selection, selector string) string {
	match := s.Find(selector).First()
	if match.Length() == 0 {
		return ""
	}
	return match.Text()
}
