// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package progress

import (
	"testing"

	"github.com/casaflow/draftsync/internal/models"
)

func TestCalculate_PropertyWizard(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name           string
		data           models.FormData
		wantGeneral    bool
		wantLocation   bool
		wantPercentage int
	}{
		{
			name: "general step complete",
			data: models.FormData{
				"title":       "X",
				"description": "Y",
				"price":       100000,
			},
			wantGeneral:    true,
			wantLocation:   false,
			wantPercentage: 20, // 1 of 5 steps
		},
		{
			name:           "empty payload",
			data:           models.FormData{},
			wantGeneral:    false,
			wantLocation:   false,
			wantPercentage: 0,
		},
		{
			name: "empty strings do not count",
			data: models.FormData{
				"title":       "",
				"description": "Y",
				"price":       100000,
			},
			wantGeneral:    false,
			wantPercentage: 0,
		},
		{
			name: "two steps complete",
			data: models.FormData{
				"title":       "X",
				"description": "Y",
				"price":       100000,
				"address":     "1 Main St",
				"city":        "Springfield",
			},
			wantGeneral:    true,
			wantLocation:   true,
			wantPercentage: 40, // 2 of 5 steps
		},
		{
			name: "zero price still counts as present",
			data: models.FormData{
				"title":       "X",
				"description": "Y",
				"price":       0,
			},
			wantGeneral:    true,
			wantPercentage: 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, pct := calc.Calculate(models.WizardProperty, tt.data)
			if steps["general"] != tt.wantGeneral {
				t.Errorf("general = %v, want %v", steps["general"], tt.wantGeneral)
			}
			if steps["location"] != tt.wantLocation {
				t.Errorf("location = %v, want %v", steps["location"], tt.wantLocation)
			}
			if pct != tt.wantPercentage {
				t.Errorf("percentage = %d, want %d", pct, tt.wantPercentage)
			}
		})
	}
}

func TestCalculate_UnknownTypeFallsBack(t *testing.T) {
	calc := NewCalculator()

	steps, pct := calc.Calculate("garage", models.FormData{"title": "Spacious garage"})
	if !steps["general"] {
		t.Error("expected fallback general step complete when title present")
	}
	if steps["details"] {
		t.Error("expected fallback details step incomplete without description")
	}
	if pct != 50 {
		t.Errorf("percentage = %d, want 50", pct)
	}
}

func TestCalculate_NilPayload(t *testing.T) {
	calc := NewCalculator()

	steps, pct := calc.Calculate(models.WizardBlog, nil)
	if pct != 0 {
		t.Errorf("percentage = %d, want 0", pct)
	}
	for name, done := range steps {
		if done {
			t.Errorf("step %q reported complete for nil payload", name)
		}
	}
}

func TestCalculate_RoundsPercentage(t *testing.T) {
	calc := NewCalculator()

	// Blog has 3 steps; 1/3 rounds to 33, 2/3 rounds to 67.
	_, pct := calc.Calculate(models.WizardBlog, models.FormData{"title": "T"})
	if pct != 33 {
		t.Errorf("1/3 percentage = %d, want 33", pct)
	}
	_, pct = calc.Calculate(models.WizardBlog, models.FormData{"title": "T", "content": "C"})
	if pct != 67 {
		t.Errorf("2/3 percentage = %d, want 67", pct)
	}
}

func TestRegister_OverridesAndEmptySteps(t *testing.T) {
	calc := NewCalculator()
	calc.Register("custom", []Step{})

	// Empty step list must not divide by zero.
	steps, pct := calc.Calculate("custom", models.FormData{"title": "T"})
	if len(steps) != 0 {
		t.Errorf("expected no steps, got %v", steps)
	}
	if pct != 0 {
		t.Errorf("percentage = %d, want 0", pct)
	}
}

func TestSteps_DeclaredOrder(t *testing.T) {
	calc := NewCalculator()
	got := calc.Steps(models.WizardLand)
	want := []string{"general", "location", "details", "pricing"}
	if len(got) != len(want) {
		t.Fatalf("steps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
