package events

import "time"

type RunFinishedEvent struct {
	RunID      string    `json:"run_id"`
	RunType    string    `json:"run_type"`
	Status     string    `json:"status"`
	Found      int       `json:"exams_found"`
	New        int       `json:"exams_new"`
	Updated    int       `json:"exams_updated"`
	Closed     int       `json:"exams_closed"`
	Errors     int       `json:"errors"`
	DurationMs int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}

type StatusChangedEvent struct {
	ExamID       string `json:"exam_id"`
	ExamName     string `json:"exam_name"`
	Organization string `json:"organization"`
	From         string `json:"from"`
	To           string `json:"to"`
}
