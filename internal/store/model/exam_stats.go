package model

import "github.com/apc-foundation/exam-pipeline/internal/lifecycle"

type ExamStats struct {
	// TotalActive is the number of exams with is_active set.
	TotalActive int64
	// ByStatus counts active exams per lifecycle status.
	ByStatus map[lifecycle.Status]int64
	// ByOrganization counts active exams per organization. Empty organizations count as Unknown.
	ByOrganization map[string]int64
	// ByLevel counts active exams per level.
	ByLevel map[string]int64
}

// GroupCount is one row of a GROUP BY count query.
type GroupCount struct {
	Name  string
	Total int64
}

const unknownGroup = "Unknown"

// NewExamStats folds grouped counts into ExamStats.
func NewExamStats(byStatus, byOrganization, byLevel []GroupCount) ExamStats {
	stats := ExamStats{
		ByStatus:       make(map[lifecycle.Status]int64),
		ByOrganization: make(map[string]int64),
		ByLevel:        make(map[string]int64),
	}

	for _, g := range byStatus {
		stats.TotalActive += g.Total
		stats.ByStatus[lifecycle.Status(g.Name)] += g.Total
	}
	for _, g := range byOrganization {
		stats.ByOrganization[groupKey(g.Name)] += g.Total
	}
	for _, g := range byLevel {
		stats.ByLevel[groupKey(g.Name)] += g.Total
	}

	return stats
}

func groupKey(k string) string {
	if k == "" {
		return unknownGroup
	}
	return k
}
