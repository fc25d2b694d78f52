// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package validation

import (
	"strings"
	"testing"
)

type quietHoursRequest struct {
	Start string `validate:"required,hhmm"`
	End   string `validate:"required,hhmm"`
}

type messageRequest struct {
	Content string `validate:"required,min=1,max=2000"`
}

type placeRequest struct {
	Name string `validate:"required,min=1,max=100"`
	Type string `validate:"required,oneof=unit outdoor shared"`
}

func TestValidateStructPasses(t *testing.T) {
	t.Parallel()

	if err := ValidateStruct(&quietHoursRequest{Start: "22:00", End: "07:30"}); err != nil {
		t.Errorf("expected valid quiet hours, got %v", err)
	}
	if err := ValidateStruct(&placeRequest{Name: "Courtyard", Type: "outdoor"}); err != nil {
		t.Errorf("expected valid place, got %v", err)
	}
}

func TestValidateHHMM(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		valid bool
	}{
		{"00:00", true},
		{"23:59", true},
		{"7:30", true},
		{"24:00", false},
		{"12:60", false},
		{"noon", false},
		{"12-30", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()

			err := ValidateStruct(&quietHoursRequest{Start: tt.value, End: "08:00"})
			if tt.valid && err != nil {
				t.Errorf("%q should be valid: %v", tt.value, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("%q should be rejected", tt.value)
			}
		})
	}
}

func TestToAPIErrorSingleField(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&messageRequest{Content: ""})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR code, got %q", apiErr.Code)
	}
	if apiErr.Message != "Content is required" {
		t.Errorf("unexpected message: %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "Content" {
		t.Errorf("unexpected details: %v", apiErr.Details)
	}
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&placeRequest{Name: "", Type: "castle"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) != 2 {
		t.Fatalf("expected 2 field errors, got %d", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if !strings.Contains(apiErr.Message, "Name is required") {
		t.Errorf("missing Name error in %q", apiErr.Message)
	}
	if !strings.Contains(apiErr.Message, "Type must be one of: unit outdoor shared") {
		t.Errorf("missing Type error in %q", apiErr.Message)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected fields detail for multi-error response")
	}
}

func TestValidateMaxLengthMessage(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&messageRequest{Content: strings.Repeat("a", 2001)})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if got := err.Error(); got != "Content must be at most 2000 characters" {
		t.Errorf("unexpected message: %q", got)
	}
}
