package repairjobs

import (
	"fmt"
	"time"

	"github.com/angelmondragon/repairdesk-backend/pkg/db/models"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
)

// StatusChange is a requested lifecycle transition. A nil returned flag leaves
// the flag alone unless the job leaves Completed.
type StatusChange struct {
	Status               string
	IsReturnedToCustomer *bool
}

type lifecycleState struct {
	status      enums.JobStatus
	completedAt *time.Time
	returned    bool
	returnedAt  *time.Time
}

// ApplyStatus relabels the job and applies the timestamp side effects. Any
// transition between recognized statuses is allowed. The job is left untouched
// when an error is returned.
func ApplyStatus(job *models.RepairJob, change StatusChange, now time.Time) error {
	status, err := enums.ParseJobStatus(change.Status)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeBusinessRule, fmt.Sprintf("Unknown status %q.", change.Status)).
			WithReason(pkgerrors.ReasonUnknownStatus).
			WithDetails(map[string]any{"value": change.Status, "allowed": enums.JobStatuses()})
	}

	next := lifecycleState{
		status:      status,
		completedAt: job.CompletedAt,
		returned:    job.IsReturnedToCustomer,
		returnedAt:  job.ReturnedAt,
	}

	if status == enums.JobStatusCompleted {
		if next.completedAt == nil {
			stamp := now
			next.completedAt = &stamp
		}
	} else {
		next.completedAt = nil
		next.returned = false
		next.returnedAt = nil
	}

	if change.IsReturnedToCustomer != nil {
		if status != enums.JobStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "Only completed jobs can be marked as returned to the customer.").
				WithReason(pkgerrors.ReasonInvalidReturnedTransition).
				WithDetails(map[string]any{"status": status})
		}
		if *change.IsReturnedToCustomer {
			stamp := now
			next.returned = true
			next.returnedAt = &stamp
		} else {
			next.returned = false
			next.returnedAt = nil
		}
	}

	job.Status = next.status
	job.CompletedAt = next.completedAt
	job.IsReturnedToCustomer = next.returned
	job.ReturnedAt = next.returnedAt
	return nil
}
