package sources

import (
	"time"
)

// Candidate is a chapter listed by a source, not yet checked against
// stored chapters.
type Candidate struct {
	SourceURL   string
	Name        string
	Author      string
	PublishedAt *time.Time
}
