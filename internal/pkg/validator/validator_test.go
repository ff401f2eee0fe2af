package validator

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidUUID(t *testing.T) {
	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B",
	}
	invalid := []string{
		"123e4567-e89b-12d3-a456-426614174000", // not v7
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",     // missing dashes
		"",
	}
	for _, uuid := range valid {
		if !IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = false, want true", uuid)
		}
	}
	for _, uuid := range invalid {
		if IsValidUUID(uuid) {
			t.Errorf("IsValidUUID(%q) = true, want false", uuid)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", ""}
	for _, s := range valid {
		if _, ok := IsValidDate(s); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if _, ok := IsValidDate(s); ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidDateRange(t *testing.T) {
	if _, _, ok := IsValidDateRange("2024-01-01", "2024-01-31"); !ok {
		t.Errorf("IsValidDateRange(jan) = false, want true")
	}
	if _, _, ok := IsValidDateRange("2024-01-01", "2024-01-01"); !ok {
		t.Errorf("IsValidDateRange(single day) = false, want true")
	}
	if _, _, ok := IsValidDateRange("2024-02-01", "2024-01-31"); ok {
		t.Errorf("IsValidDateRange(reversed) = true, want false")
	}
}

func TestIsValidAmount(t *testing.T) {
	valid := []string{"0.01", "1", "1000.50"}
	invalid := []string{"0", "-1", "10.005"}
	for _, s := range valid {
		if !IsValidAmount(decimal.RequireFromString(s)) {
			t.Errorf("IsValidAmount(%s) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidAmount(decimal.RequireFromString(s)) {
			t.Errorf("IsValidAmount(%s) = true, want false", s)
		}
	}
}

func TestIsValidPercent(t *testing.T) {
	for _, s := range []string{"0", "12.5", "100"} {
		if !IsValidPercent(decimal.RequireFromString(s)) {
			t.Errorf("IsValidPercent(%s) = false, want true", s)
		}
	}
	for _, s := range []string{"-0.1", "100.01"} {
		if IsValidPercent(decimal.RequireFromString(s)) {
			t.Errorf("IsValidPercent(%s) = true, want false", s)
		}
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"a", "b", "c"}
	if !IsInSlice("a", slice) {
		t.Errorf("IsInSlice('a') = false, want true")
	}
	if IsInSlice("d", slice) {
		t.Errorf("IsInSlice('d') = true, want false")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "amount", Message: "invalid"},
		{Field: "type", Message: "required"},
	}
	got := errs.Error()
	want := "amount: invalid; type: required"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "amount", Message: "invalid"},
		{Field: "type", Message: "required"},
	}
	got := errs.ToMap()
	want := map[string]string{"amount": "invalid", "type": "required"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
