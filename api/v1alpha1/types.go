package v1alpha1

import "time"

// ExamRecord is one exam as pushed by the scraper. Status and IsActive are accepted for
// compatibility with older pushers and ignored: status is always derived from the dates
// and the active flag is owned by the store.
type ExamRecord struct {
	ExamName             string  `json:"exam_name" validate:"required_trimmed"`
	Organization         string  `json:"organization" validate:"required_trimmed"`
	Level                *string `json:"level,omitempty"`
	State                *string `json:"state,omitempty"`
	Description          *string `json:"description,omitempty"`
	Eligibility          *string `json:"eligibility,omitempty"`
	Qualification        *string `json:"qualification,omitempty"`
	AgeLimit             *string `json:"age_limit,omitempty"`
	ApplicationFee       *string `json:"application_fee,omitempty"`
	SelectionProcess     *string `json:"selection_process,omitempty"`
	OfficialWebsite      *string `json:"official_website,omitempty" validate:"omitempty,url"`
	NotificationPdf      *string `json:"notification_pdf,omitempty" validate:"omitempty,url"`
	ApplicationStartDate *string `json:"application_start_date,omitempty" validate:"omitempty,exam_date"`
	ApplicationLastDate  *string `json:"application_last_date,omitempty" validate:"omitempty,exam_date"`
	ExamDate             *string `json:"exam_date,omitempty" validate:"omitempty,exam_date"`

	Status   *string `json:"status,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// RunRequest is the optional body of the run trigger.
type RunRequest struct {
	RunType *string `json:"runType,omitempty"`
}

// WebhookRequest is the payload the scraper pushes after a crawl.
type WebhookRequest struct {
	Scrapers []string       `json:"scrapers"`
	Exams    []ExamRecord   `json:"exams"`
	Stats    map[string]any `json:"stats"`
	ErrorLog string         `json:"error_log,omitempty"`
}

type StatusChanges struct {
	Closed     int `json:"closed"`
	Opened     int `json:"opened"`
	ComingSoon int `json:"coming_soon"`
}

type Totals struct {
	ActiveExams int64 `json:"active_exams"`
	OpenExams   int64 `json:"open_exams"`
}

type RunResponse struct {
	Success       bool          `json:"success"`
	RunID         *string       `json:"run_id"`
	DurationMs    int64         `json:"duration_ms"`
	StatusChanges StatusChanges `json:"status_changes"`
	Totals        Totals        `json:"totals"`
}

type WebhookResponse struct {
	Success       bool          `json:"success"`
	RunID         *string       `json:"run_id"`
	DurationMs    int64         `json:"duration_ms"`
	New           int           `json:"new"`
	Updated       int           `json:"updated"`
	Errors        int           `json:"errors"`
	StatusChanges StatusChanges `json:"status_changes"`
}

type ErrorResponse struct {
	Error     string  `json:"error"`
	RunID     *string `json:"run_id,omitempty"`
	RequestId *string `json:"request_id,omitempty"`
}

// Run is the API form of a ledger entry.
type Run struct {
	ID         string         `json:"id"`
	RunType    RunType        `json:"run_type"`
	Status     RunStatus      `json:"status"`
	Sources    []string       `json:"sources"`
	Found      int            `json:"exams_found"`
	New        int            `json:"exams_new"`
	Updated    int            `json:"exams_updated"`
	Closed     int            `json:"exams_closed"`
	Errors     int            `json:"errors"`
	ErrorLog   *string        `json:"error_log"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at"`
	DurationMs *int64         `json:"duration_ms"`
	Metadata   map[string]any `json:"metadata"`
}

type ExamStats struct {
	TotalActive    int64            `json:"total_active"`
	Open           int64            `json:"open"`
	Closed         int64            `json:"closed"`
	ComingSoon     int64            `json:"coming_soon"`
	ByOrganization map[string]int64 `json:"by_organization"`
	ByLevel        map[string]int64 `json:"by_level"`
}

type StatusResponse struct {
	Runs    []Run     `json:"runs"`
	Stats   ExamStats `json:"stats"`
	LastRun *Run      `json:"last_run"`
}
