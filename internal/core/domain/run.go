package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run identifies one scraping session. All pool, dedup and retry state is
// scoped to a single run; independent runs share nothing.
type Run struct {
	ID        string
	Keyword   string
	Location  string
	StartedAt time.Time
}

// NewRun creates run metadata for a keyword/location pair.
func NewRun(keyword, location string) Run {
	return Run{
		ID:        uuid.NewString(),
		Keyword:   keyword,
		Location:  location,
		StartedAt: time.Now(),
	}
}

// Query is the search phrase submitted to the target.
func (r Run) Query() string {
	return r.Keyword + " in " + r.Location
}
