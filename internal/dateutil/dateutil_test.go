package dateutil

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	t.Run("valid date", func(t *testing.T) {
		got, err := ParseDate("2025-01-15", time.UTC)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("uses location", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*60*60)
		got, err := ParseDate("2025-01-15", loc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := time.Date(2025, 1, 14, 22, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got.UTC(), want)
		}
	})

	t.Run("empty defaults to today", func(t *testing.T) {
		got, err := ParseDate("", time.UTC)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		today := TruncateToDay(time.Now().UTC())
		if !got.Equal(today) {
			t.Errorf("got %v, want %v", got, today)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := ParseDate("01-15-2025", time.UTC)
		if !errors.Is(err, ErrInvalidDateFormat) {
			t.Errorf("got error %v, want %v", err, ErrInvalidDateFormat)
		}
	})
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "00:00", want: 0},
		{input: "07:00", want: 420},
		{input: "20:30", want: 1230},
		{input: "23:59", want: 1439},
		{input: "7:00", wantErr: true},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "noon", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidClockFormat) {
					t.Errorf("got error %v, want %v", err, ErrInvalidClockFormat)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAt(t *testing.T) {
	day := time.Date(2024, 1, 1, 15, 45, 0, 0, time.UTC)
	got, err := At(day, "08:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := At(day, "8.30"); !errors.Is(err, ErrInvalidClockFormat) {
		t.Errorf("got error %v, want %v", err, ErrInvalidClockFormat)
	}
}

func TestParseWeekdays(t *testing.T) {
	got, err := ParseWeekdays("mon, Wednesday,FRI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d: got %v, want %v", i, got[i], want[i])
		}
	}

	empty, err := ParseWeekdays("  ")
	if err != nil || empty != nil {
		t.Errorf("empty input: got %v, %v", empty, err)
	}

	if _, err := ParseWeekdays("mon,funday"); !errors.Is(err, ErrInvalidWeekday) {
		t.Errorf("got error %v, want %v", err, ErrInvalidWeekday)
	}
}

func TestTruncateToDay(t *testing.T) {
	input := time.Date(2025, 1, 15, 14, 30, 45, 123456789, time.UTC)
	got := TruncateToDay(input)
	want := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseRelativeDate(t *testing.T) {
	// Monday 2024-01-01, mid-morning
	now := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		input string
		want  time.Time
	}{
		{"", day(1)},
		{"today", day(1)},
		{"Tomorrow", day(2)},
		{"thursday", day(4)},
		{"monday", day(8)},
		{"next-tuesday", day(2)},
		{"next-week", day(8)},
		{"2024-01-01", day(1)},
		{"2024-01-15", day(15)},
		{"  Friday ", day(5)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRelativeDate(tt.input, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRelativeDate_Location(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC on Tuesday is still Monday evening at UTC-5
	now := time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC).In(loc)

	got, err := ParseRelativeDate("tomorrow", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, 1, 2, 0, 0, 0, 0, loc); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseRelativeDate_Errors(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		input   string
		wantErr error
	}{
		{"2023-12-31", ErrDateInPast},
		{"01-15-2024", ErrInvalidDateFormat},
		{"yesterday", ErrInvalidDateFormat},
		{"next-", ErrInvalidDateFormat},
		{"next-mondya", ErrInvalidDateFormat},
	}

	for _, tt := range tests {
		if _, err := ParseRelativeDate(tt.input, now); !errors.Is(err, tt.wantErr) {
			t.Errorf("ParseRelativeDate(%q) error = %v, want %v", tt.input, err, tt.wantErr)
		}
	}
}
