package domain

import (
	"sort"
	"strings"
	"time"
)

// Place is one scraped business listing. Immutable once admitted by the
// deduplicator.
type Place struct {
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Phone          string    `json:"phone"`
	Emails         []string  `json:"emails,omitempty"`
	Website        string    `json:"website"`
	Category       string    `json:"category"`
	Rating         float64   `json:"rating"`
	Hours          string    `json:"hours"`
	PriceLevel     string    `json:"price_level"`
	BusinessStatus string    `json:"business_status"`
	ScrapedAt      time.Time `json:"scraped_at"`
}

// FieldOrder is the output column order for every writer.
var FieldOrder = []string{
	"name", "address", "latitude", "longitude", "phone", "email",
	"website", "category", "rating", "hours", "price_level",
	"business_status", "scraped_at",
}

// HasCoordinates reports whether the listing carried a usable position.
func (p *Place) HasCoordinates() bool {
	return p.Latitude != 0 || p.Longitude != 0
}

// EmailColumn renders the email set as a stable comma-joined string.
func (p *Place) EmailColumn() string {
	if len(p.Emails) == 0 {
		return ""
	}
	emails := make([]string, len(p.Emails))
	copy(emails, p.Emails)
	sort.Strings(emails)
	return strings.Join(emails, ", ")
}

// SetEmails replaces the email set with the sorted contents of a set.
func (p *Place) SetEmails(set map[string]struct{}) {
	if len(set) == 0 {
		p.Emails = nil
		return
	}
	emails := make([]string, 0, len(set))
	for e := range set {
		emails = append(emails, e)
	}
	sort.Strings(emails)
	p.Emails = emails
}
