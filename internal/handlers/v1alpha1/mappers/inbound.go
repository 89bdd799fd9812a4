package mappers

import (
	api "github.com/apc-foundation/exam-pipeline/api/v1alpha1"
	"github.com/apc-foundation/exam-pipeline/internal/auth"
)

// RunTypeFromRequest picks the run type of a triggered run. Secret holders are the
// scheduler; admins choose through the body and default to a manual run.
func RunTypeFromRequest(caller auth.Caller, body *api.RunRequest) api.RunType {
	if caller.Kind == auth.CallerSecret {
		return api.RunTypeScheduled
	}
	if body == nil || body.RunType == nil {
		return api.RunTypeManual
	}
	return api.StringToRunType(*body.RunType)
}
