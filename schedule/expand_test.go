package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExpandDaily(t *testing.T) {
	got, err := Expand(day(2024, time.January, 1), day(2024, time.January, 5), Daily, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{
		"01.01.2024",
		"02.01.2024",
		"03.01.2024",
		"04.01.2024",
		"05.01.2024",
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Bad due dates; diff (-got +want)\n%s", diff)
	}
}

func TestExpandDailySingleDay(t *testing.T) {
	got, err := Expand(day(2024, time.March, 15), day(2024, time.March, 15), Daily, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"15.03.2024"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Bad due dates; diff (-got +want)\n%s", diff)
	}
}

func TestExpandDailyIgnoresTimeOfDay(t *testing.T) {
	// A start late in the day must not push the first due date off by one.
	start := time.Date(2024, time.January, 1, 23, 30, 0, 0, time.UTC)
	end := time.Date(2024, time.January, 3, 0, 15, 0, 0, time.UTC)

	got, err := Expand(start, end, Daily, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"01.01.2024", "02.01.2024", "03.01.2024"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Bad due dates; diff (-got +want)\n%s", diff)
	}
}

func TestExpandEveryOtherDay(t *testing.T) {
	got, err := Expand(day(2024, time.January, 1), day(2024, time.January, 8), EveryOtherDay, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Due dates fall on even offsets from the start date.
	want := []string{
		"01.01.2024",
		"03.01.2024",
		"05.01.2024",
		"07.01.2024",
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Bad due dates; diff (-got +want)\n%s", diff)
	}
}

func TestExpandEveryOtherDayAnchoredAtStart(t *testing.T) {
	// Shifting the start by one day flips which dates are due.  The result
	// depends only on the range, never on when the expansion runs.
	got, err := Expand(day(2024, time.January, 2), day(2024, time.January, 8), EveryOtherDay, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{
		"02.01.2024",
		"04.01.2024",
		"06.01.2024",
		"08.01.2024",
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Bad due dates; diff (-got +want)\n%s", diff)
	}
}

func TestExpandAcceptsMobileEveryOtherDayValue(t *testing.T) {
	// Records written by the mobile client store "every2" for this rule.
	got, err := Expand(day(2024, time.January, 1), day(2024, time.January, 8), Frequency("every2"), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want, err := Expand(day(2024, time.January, 1), day(2024, time.January, 8), EveryOtherDay, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("\"every2\" should expand like everyOtherDay; diff (-got +want)\n%s", diff)
	}
}

func TestExpandWeekdays(t *testing.T) {
	// 2024-01-01 is a Monday.
	got, err := Expand(day(2024, time.January, 1), day(2024, time.January, 14), Weekdays, []string{"mon", "thu"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{
		"01.01.2024",
		"04.01.2024",
		"08.01.2024",
		"11.01.2024",
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Bad due dates; diff (-got +want)\n%s", diff)
	}
}

func TestExpandWeekdaysCaseInsensitive(t *testing.T) {
	got, err := Expand(day(2024, time.January, 1), day(2024, time.January, 7), Weekdays, []string{"MON", "Sun"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"01.01.2024", "07.01.2024"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Bad due dates; diff (-got +want)\n%s", diff)
	}
}

func TestExpandWeekdaysAllDaysSelected(t *testing.T) {
	all := []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

	got, err := Expand(day(2024, time.January, 1), day(2024, time.January, 7), Weekdays, all)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	daily, err := Expand(day(2024, time.January, 1), day(2024, time.January, 7), Daily, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if diff := cmp.Diff(got, daily); diff != "" {
		t.Fatalf("All weekdays selected should match daily; diff (-got +want)\n%s", diff)
	}
}

func TestExpandErrors(t *testing.T) {
	testCases := []struct {
		name     string
		start    time.Time
		end      time.Time
		freq     Frequency
		weekdays []string
		wantErr  error
	}{
		{
			name:    "start after end",
			start:   day(2024, time.January, 5),
			end:     day(2024, time.January, 1),
			freq:    Daily,
			wantErr: ErrInvalidRange,
		},
		{
			name:    "weekdays with no days",
			start:   day(2024, time.January, 1),
			end:     day(2024, time.January, 7),
			freq:    Weekdays,
			wantErr: ErrInvalidRule,
		},
		{
			name:    "unknown frequency",
			start:   day(2024, time.January, 1),
			end:     day(2024, time.January, 7),
			freq:    Frequency("hourly"),
			wantErr: ErrUnknownFrequency,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Expand(tc.start, tc.end, tc.freq, tc.weekdays)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Got error %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestWeekdayLabel(t *testing.T) {
	if got := WeekdayLabel(time.Monday); got != "mon" {
		t.Errorf("Got %q for Monday, want %q", got, "mon")
	}
	if got := WeekdayLabel(time.Sunday); got != "sun" {
		t.Errorf("Got %q for Sunday, want %q", got, "sun")
	}
}
