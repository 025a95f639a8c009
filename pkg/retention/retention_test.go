package retention

import (
	"testing"
	"time"
)

func TestEligibleBoundaryIsInclusive(t *testing.T) {
	archivedAt := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	period := 30 * 24 * time.Hour

	if Eligible(archivedAt, period, archivedAt.Add(period-time.Second)) {
		t.Fatalf("expected record still protected one second before the deadline")
	}
	if !Eligible(archivedAt, period, archivedAt.Add(period)) {
		t.Fatalf("expected eligibility exactly at the deadline")
	}
	if !Eligible(archivedAt, period, archivedAt.Add(period+time.Second)) {
		t.Fatalf("expected eligibility after the deadline")
	}
}

func TestEligibleZeroPeriod(t *testing.T) {
	archivedAt := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)

	if !Eligible(archivedAt, 0, archivedAt) {
		t.Fatalf("zero period must make records immediately removable")
	}
	if !Eligible(archivedAt, -time.Hour, archivedAt) {
		t.Fatalf("negative period must behave like zero")
	}
}

func TestRemaining(t *testing.T) {
	archivedAt := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	period := 10 * time.Hour

	if got := Remaining(archivedAt, period, archivedAt.Add(4*time.Hour)); got != 6*time.Hour {
		t.Fatalf("expected 6h remaining, got %s", got)
	}
	if got := Remaining(archivedAt, period, archivedAt.Add(period)); got != 0 {
		t.Fatalf("expected zero remaining at the deadline, got %s", got)
	}
	if got := Remaining(archivedAt, period, archivedAt.Add(period+time.Hour)); got != 0 {
		t.Fatalf("expected zero remaining past the deadline, got %s", got)
	}
}

func TestDeadline(t *testing.T) {
	archivedAt := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	want := time.Date(2024, 10, 31, 12, 0, 0, 0, time.UTC)

	if got := Deadline(archivedAt, 30*24*time.Hour); !got.Equal(want) {
		t.Fatalf("expected deadline %s, got %s", want, got)
	}
}
