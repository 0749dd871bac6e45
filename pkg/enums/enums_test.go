package enums

import "testing"

func TestParseJobStatusIsCaseInsensitive(t *testing.T) {
	cases := map[string]JobStatus{
		"new":            JobStatusNew,
		"IN PROGRESS":    JobStatusInProgress,
		" waiting parts": JobStatusWaitingParts,
		"Ready":          JobStatusReady,
		"completed ":     JobStatusCompleted,
	}
	for raw, want := range cases {
		got, err := ParseJobStatus(raw)
		if err != nil {
			t.Fatalf("ParseJobStatus(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseJobStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParseJobStatusRejectsUnknown(t *testing.T) {
	for _, raw := range []string{"", "Returned", "InProgress", "done"} {
		if _, err := ParseJobStatus(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestJobStatusesReturnsCopy(t *testing.T) {
	statuses := JobStatuses()
	if len(statuses) != 5 {
		t.Fatalf("expected five statuses, got %d", len(statuses))
	}
	statuses[0] = "mutated"
	if JobStatuses()[0] != JobStatusNew {
		t.Fatalf("JobStatuses must not expose the backing slice")
	}
}

func TestStockMovementReasonParse(t *testing.T) {
	reason, err := ParseStockMovementReason("job_reserve")
	if err != nil || reason != StockMovementJobReserve {
		t.Fatalf("unexpected parse result %q %v", reason, err)
	}
	if _, err := ParseStockMovementReason("JOB_RESERVE"); err == nil {
		t.Fatal("reason parsing is exact")
	}
	if !StockMovementManualSet.IsValid() || StockMovementReason("x").IsValid() {
		t.Fatal("IsValid mismatch")
	}
}
