package catalog

import (
	"testing"
	"time"
)

func TestSlotsForDate(t *testing.T) {
	tests := []struct {
		name string
		date string
		want []Slot
	}{
		{
			name: "monday uses the weekday schedule",
			date: "2025-06-02",
			want: []Slot{
				{Start: "15:30", End: "17:00"},
				{Start: "17:00", End: "18:30"},
				{Start: "18:30", End: "20:00"},
			},
		},
		{
			name: "friday uses the weekday schedule",
			date: "2025-06-06",
			want: []Slot{
				{Start: "15:30", End: "17:00"},
				{Start: "17:00", End: "18:30"},
				{Start: "18:30", End: "20:00"},
			},
		},
		{
			name: "saturday uses the saturday schedule",
			date: "2025-06-07",
			want: []Slot{
				{Start: "11:00", End: "12:30"},
				{Start: "12:30", End: "14:00"},
			},
		},
		{
			name: "sunday is closed",
			date: "2025-06-08",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, err := ParseISODate(tt.date)
			if err != nil {
				t.Fatalf("parse date: %v", err)
			}
			got := SlotsForDate(date)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d slots, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("slot %d: got %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSlotsForISODate_InvalidDate(t *testing.T) {
	if _, err := SlotsForISODate("06/02/2025"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"15:30", "15:30"},
		{"15:30:00", "15:30"},
		{" 15:30:00 ", "15:30"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTime(tt.in); got != tt.want {
			t.Errorf("NormalizeTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTime_EquatesSecondsForms(t *testing.T) {
	if NormalizeTime("15:30") != NormalizeTime("15:30:00") {
		t.Fatal("5-char and 8-char spellings of the same time must be equal after normalization")
	}
}

func TestFindSlot(t *testing.T) {
	slot, ok := FindSlot("2025-06-02", "17:00:00")
	if !ok {
		t.Fatal("expected slot for 17:00:00 on a weekday")
	}
	if slot.End != "18:30" {
		t.Errorf("got end %q, want 18:30", slot.End)
	}

	if _, ok := FindSlot("2025-06-02", "11:00"); ok {
		t.Error("saturday slot must not match a weekday")
	}

	if _, ok := FindSlot("2025-06-08", "15:30"); ok {
		t.Error("no slot may match on a closed day")
	}

	if _, ok := FindSlot("not-a-date", "15:30"); ok {
		t.Error("invalid dates must not match any slot")
	}
}

func TestSlotsForDate_ReturnsCopy(t *testing.T) {
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)
	slots := SlotsForDate(date)
	slots[0].Start = "00:00"
	if SlotsForDate(date)[0].Start != "15:30" {
		t.Fatal("catalog must not be mutable through returned slices")
	}
}
