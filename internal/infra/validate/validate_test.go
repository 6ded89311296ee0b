package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/worktracker/worktracker/internal/domain"
)

type sample struct {
	Name     string          `json:"name" validate:"required,notblank"`
	Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
	Start    string          `json:"start" validate:"hhmm"`
	Kind     string          `json:"kind" validate:"omitempty,oneof=income expense"`
	Fraction decimal.Decimal `json:"fraction" validate:"gte=0,lte=1"`
}

func valid() sample {
	return sample{
		Name:     "rent",
		Amount:   decimal.NewFromInt(100),
		Start:    "09:30",
		Fraction: decimal.RequireFromString("0.5"),
	}
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(valid()); err != nil {
		t.Fatalf("Struct() error: %v", err)
	}
}

func TestStruct_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sample)
		field  string
	}{
		{"blank name", func(s *sample) { s.Name = "   " }, "name must not be blank"},
		{"zero amount", func(s *sample) { s.Amount = decimal.Zero }, "amount must be greater than 0"},
		{"negative amount", func(s *sample) { s.Amount = decimal.NewFromInt(-5) }, "amount must be greater than 0"},
		{"bad clock", func(s *sample) { s.Start = "25:00" }, "start must be in HH:MM format"},
		{"bad kind", func(s *sample) { s.Kind = "gift" }, "kind must be one of"},
		{"fraction above one", func(s *sample) { s.Fraction = decimal.RequireFromString("1.2") }, "fraction must be at most 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := Struct(s)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Struct() = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Struct() = %q, want mention of %q", err, tt.field)
			}
		})
	}
}

func TestClockTime(t *testing.T) {
	for _, s := range []string{"00:00", "09:05", "23:59"} {
		if !ClockTime(s) {
			t.Errorf("ClockTime(%q) = false", s)
		}
	}
	for _, s := range []string{"24:00", "9:05", "12:60", ""} {
		if ClockTime(s) {
			t.Errorf("ClockTime(%q) = true", s)
		}
	}
}
