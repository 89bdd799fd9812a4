package v1alpha1

import "strings"

// RunType says how a pipeline run was started.
type RunType string

const (
	RunTypeScheduled RunType = "scheduled"
	RunTypeManual    RunType = "manual"
	RunTypeWebhook   RunType = "webhook"
)

// RunStatus is the ledger state of a run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusSuccess, RunStatusPartial, RunStatusFailed:
		return true
	default:
		return false
	}
}

// StringToRunType maps a caller supplied run type. Anything unknown is a manual run,
// and webhook runs cannot be requested through the run endpoint.
func StringToRunType(s string) RunType {
	switch RunType(strings.ToLower(strings.TrimSpace(s))) {
	case RunTypeScheduled:
		return RunTypeScheduled
	default:
		return RunTypeManual
	}
}
