package enums

import (
	"fmt"
	"strings"
)

// JobStatus is the workflow label of a repair job.
type JobStatus string

const (
	JobStatusNew          JobStatus = "New"
	JobStatusInProgress   JobStatus = "In Progress"
	JobStatusWaitingParts JobStatus = "Waiting Parts"
	JobStatusReady        JobStatus = "Ready"
	JobStatusCompleted    JobStatus = "Completed"
)

var validJobStatuses = []JobStatus{
	JobStatusNew,
	JobStatusInProgress,
	JobStatusWaitingParts,
	JobStatusReady,
	JobStatusCompleted,
}

// JobStatuses returns the recognized statuses in workflow order.
func JobStatuses() []JobStatus {
	out := make([]JobStatus, len(validJobStatuses))
	copy(out, validJobStatuses)
	return out
}

func (s JobStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is one of the canonical spellings.
func (s JobStatus) IsValid() bool {
	for _, candidate := range validJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseJobStatus matches raw input case-insensitively and returns the
// canonical spelling.
func ParseJobStatus(value string) (JobStatus, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validJobStatuses {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job status %q", value)
}
