package enums

import "testing"

func TestParseReportStatus(t *testing.T) {
	for _, status := range ReportStatuses() {
		got, err := ParseReportStatus(string(status))
		if err != nil || got != status {
			t.Fatalf("expected %s to parse, got %q err=%v", status, got, err)
		}
	}
	if _, err := ParseReportStatus("closed"); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
}

func TestReportPriorityRankOrdersByUrgency(t *testing.T) {
	prev := 0
	for _, p := range ReportPriorities() {
		if p.Rank() <= prev {
			t.Fatalf("expected %s to rank above %d, got %d", p, prev, p.Rank())
		}
		prev = p.Rank()
	}
	if ReportPriority("critical").IsValid() {
		t.Fatalf("unknown priority must be invalid")
	}
}

func TestParseReportCategory(t *testing.T) {
	if _, err := ParseReportCategory("streetlight"); err != nil {
		t.Fatalf("expected streetlight to parse: %v", err)
	}
	if _, err := ParseReportCategory("Streetlight"); err == nil {
		t.Fatalf("categories are case-sensitive")
	}
}

func TestParseUserRole(t *testing.T) {
	if role, err := ParseUserRole("administrator"); err != nil || role != UserRoleAdministrator {
		t.Fatalf("expected administrator, got %q err=%v", role, err)
	}
	if _, err := ParseUserRole("admin"); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
}

func TestParseOutboxEventType(t *testing.T) {
	got, err := ParseOutboxEventType("report.status_changed")
	if err != nil || got != EventReportStatusChanged {
		t.Fatalf("expected report.status_changed, got %q err=%v", got, err)
	}
	if _, err := ParseOutboxEventType("order_created"); err == nil {
		t.Fatalf("expected unknown event type to fail")
	}
	if !AggregateReport.IsValid() || OutboxAggregateType("store").IsValid() {
		t.Fatalf("unexpected aggregate validity")
	}
}
