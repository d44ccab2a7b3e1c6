package domain

import "testing"

func TestCropRegionValidate(t *testing.T) {
	valid := CropRegion{X: 100, Y: 100, Width: 1500, Height: 2000}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid region, got error: %v", err)
	}

	if err := (CropRegion{Width: 0, Height: 100}).Validate(); err == nil {
		t.Fatal("expected validation error for zero width")
	}
	if err := (CropRegion{Width: 100, Height: -5}).Validate(); err == nil {
		t.Fatal("expected validation error for negative height")
	}
}

func TestCropRegionNormalized(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{90, 90},
		{180, 180},
		{270, -90},
		{-270, 90},
		{360, 0},
		{540, 180},
	}
	for _, tc := range cases {
		got := (CropRegion{Width: 1, Height: 1, Rotation: tc.in}).Normalized().Rotation
		if got != tc.want {
			t.Fatalf("normalize(%g): expected %g, got %g", tc.in, tc.want, got)
		}
	}
}

func TestCropRegionClamp(t *testing.T) {
	r := CropRegion{X: -50, Y: 2500, Width: 1500, Height: 2000}.Clamp(2000, 2667)
	if r.X != 0 {
		t.Fatalf("expected x clamped to 0, got %g", r.X)
	}
	if r.Y+r.Height > 2667 {
		t.Fatalf("expected rect inside source height, got y=%g h=%g", r.Y, r.Height)
	}

	oversized := CropRegion{X: 0, Y: 0, Width: 9000, Height: 9000}.Clamp(2000, 2667)
	if oversized.Width != 2000 || oversized.Height != 2667 {
		t.Fatalf("expected rect shrunk to source, got %gx%g", oversized.Width, oversized.Height)
	}
}

func TestValidateOrderID(t *testing.T) {
	if err := ValidateOrderID("5O190127TN364715T"); err != nil {
		t.Fatalf("expected valid order id, got error: %v", err)
	}
	if err := ValidateOrderID("short"); err == nil {
		t.Fatal("expected error for short order id")
	}
	if err := ValidateOrderID("5O190127TN_364715T"); err == nil {
		t.Fatal("expected error for underscore in order id")
	}
}

func TestValidatePhotoID(t *testing.T) {
	if err := ValidatePhotoID("0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8f9"); err != nil {
		t.Fatalf("expected valid photo id, got error: %v", err)
	}
	if err := ValidatePhotoID("0a1b2c3d4e5f60718293a4b5c6d7e8f9"); err == nil {
		t.Fatal("expected error for unhyphenated photo id")
	}
	if err := ValidatePhotoID("0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8fz"); err == nil {
		t.Fatal("expected error for non-hex character")
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("user@example.com"); err != nil {
		t.Fatalf("expected valid email, got error: %v", err)
	}
	if err := ValidateEmail("no-at-sign"); err == nil {
		t.Fatal("expected error for missing @")
	}
	if err := ValidateEmail("user@nodot"); err == nil {
		t.Fatal("expected error for missing domain dot")
	}
}

func TestDegradedComplianceResult(t *testing.T) {
	result := DegradedComplianceResult("compliance service unreachable")
	if result.Passed {
		t.Fatal("degraded result must not pass")
	}
	if result.Score != 0 {
		t.Fatalf("expected score 0, got %d", result.Score)
	}
	for _, verdict := range []string{
		result.Checks.Background,
		result.Checks.FacePosition,
		result.Checks.Expression,
		result.Checks.Lighting,
		result.Checks.Sharpness,
	} {
		if verdict != ComplianceCheckError {
			t.Fatalf("expected all checks %q, got %q", ComplianceCheckError, verdict)
		}
	}
	if result.Feedback == "" {
		t.Fatal("expected explanatory feedback")
	}
}
