package domain

import "time"

// RunStatus is the lifecycle state of a scraper run
type RunStatus string

// run statuses; a run is created IN_PROGRESS and finalized exactly once
const (
	RunInProgress RunStatus = "IN_PROGRESS"
	RunSuccess    RunStatus = "SUCCESS"
	RunFailure    RunStatus = "FAILURE"
)

// ScraperRun is one execution of one scraper, bounded by a start and a
// terminal log entry
type ScraperRun struct {
	ID           int64      `json:"id"`
	ScraperName  string     `json:"scraperName"`
	Status       RunStatus  `json:"status"`
	ItemsScraped int        `json:"itemsScraped"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}
