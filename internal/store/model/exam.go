package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/apc-foundation/exam-pipeline/internal/lifecycle"
	"github.com/google/uuid"
)

const DefaultExamLevel = "Central"

type Exam struct {
	ID                   uuid.UUID `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	ExamName             string    `gorm:"not null"`
	Organization         string    `gorm:"not null;index:exams_organization_idx"`
	NameKey              string    `gorm:"not null;uniqueIndex:exams_natural_key"`
	OrganizationKey      string    `gorm:"not null;uniqueIndex:exams_natural_key"`
	Level                string    `gorm:"not null;default:'Central'"`
	State                *string
	Description          *string
	Eligibility          *string
	Qualification        *string
	AgeLimit             *string
	ApplicationFee       *string
	SelectionProcess     *string
	OfficialWebsite      *string
	NotificationPdf      *string
	ApplicationStartDate *time.Time `gorm:"type:date"`
	ApplicationLastDate  *time.Time `gorm:"type:date"`
	ExamDate             *time.Time `gorm:"type:date"`
	Status               string     `gorm:"not null;index:exams_active_status_idx,priority:2"`
	IsActive             bool       `gorm:"not null;default:true;index:exams_active_status_idx,priority:1"`
	CreatedAt            time.Time  `gorm:"not null"`
	UpdatedAt            time.Time  `gorm:"not null"`
}

type ExamList []Exam

// NaturalKey normalises a value for case-insensitive natural key comparison.
func NaturalKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SetNaturalKey fills the normalised key columns from the display values.
func (e *Exam) SetNaturalKey() {
	e.NameKey = NaturalKey(e.ExamName)
	e.OrganizationKey = NaturalKey(e.Organization)
}

func (e Exam) Dates() lifecycle.Dates {
	return lifecycle.Dates{
		ApplicationStart: e.ApplicationStartDate,
		ApplicationClose: e.ApplicationLastDate,
		Exam:             e.ExamDate,
	}
}

// MutableColumns are overwritten wholesale when a known exam is sighted again.
// is_active, id and created_at are deliberately absent.
func MutableColumns() []string {
	return []string{
		"exam_name", "organization", "level", "state", "description", "eligibility",
		"qualification", "age_limit", "application_fee", "selection_process",
		"official_website", "notification_pdf", "application_start_date",
		"application_last_date", "exam_date", "status", "updated_at",
	}
}

func (e Exam) String() string {
	val, _ := json.Marshal(e)
	return string(val)
}
