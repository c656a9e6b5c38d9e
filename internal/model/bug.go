package model

import "time"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

type BugStatus string

const (
	BugNew        BugStatus = "new"
	BugReviewing  BugStatus = "reviewing"
	BugInProgress BugStatus = "in_progress"
	BugNeedsHuman BugStatus = "needs_human"
	BugResolved   BugStatus = "resolved"
	BugClosed     BugStatus = "closed"
)

var BugStatuses = []BugStatus{BugNew, BugReviewing, BugInProgress, BugNeedsHuman, BugResolved, BugClosed}

type Bug struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Severity    Severity          `json:"severity"`
	AppName     string            `json:"app_name"`
	Status      BugStatus         `json:"status"`
	ReporterID  string            `json:"reporter_id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Comments    []BugComment      `json:"comments"`
	History     []BugStatusChange `json:"history"`
}

type BugComment struct {
	ID         string    `json:"id"`
	BugID      string    `json:"bug_id"`
	Comment    string    `json:"comment"`
	IsInternal bool      `json:"is_internal"`
	AuthorID   string    `json:"author_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type BugStatusChange struct {
	From      BugStatus `json:"from"`
	To        BugStatus `json:"to"`
	Notes     *string   `json:"notes"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

type BugStatusUpdate struct {
	ID        string    `json:"id"`
	Status    BugStatus `json:"status"`
	Notes     *string   `json:"notes"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BugFilters struct {
	Status   BugStatus `json:"status,omitempty"`
	Severity Severity  `json:"severity,omitempty"`
	AppName  string    `json:"app_name,omitempty"`
	Limit    int       `json:"limit"`
}

type BugList struct {
	Bugs    []Bug      `json:"bugs"`
	Count   int        `json:"count"`
	Filters BugFilters `json:"filters"`
}
