package validate

import (
	"testing"

	"github.com/passportpix/passportpix/internal/config"
)

func testRules() config.PhotoRules {
	return config.PhotoRules{
		MinBytes:  250 * 1024,
		MaxBytes:  5120 * 1024,
		MinWidth:  900,
		MaxWidth:  4500,
		MinHeight: 1200,
		MaxHeight: 6000,
		Format:    "jpeg",
	}
}

func TestCheckSizeBoundaries(t *testing.T) {
	rules := testRules()

	if !Check(rules, 250*1024, 1500, 2000, "jpeg").SizeValid {
		t.Fatal("expected 250KiB exactly to be valid")
	}
	if Check(rules, 250*1024-1, 1500, 2000, "jpeg").SizeValid {
		t.Fatal("expected one byte under 250KiB to be invalid")
	}
	if !Check(rules, 5120*1024, 1500, 2000, "jpeg").SizeValid {
		t.Fatal("expected 5120KiB exactly to be valid")
	}
	if Check(rules, 5120*1024+1, 1500, 2000, "jpeg").SizeValid {
		t.Fatal("expected one byte over 5120KiB to be invalid")
	}
}

func TestCheckDimensionBoundaries(t *testing.T) {
	rules := testRules()

	if !Check(rules, 300*1024, 900, 1200, "jpeg").DimensionsValid {
		t.Fatal("expected 900x1200 to be valid")
	}
	if Check(rules, 300*1024, 899, 1200, "jpeg").DimensionsValid {
		t.Fatal("expected width 899 to be invalid")
	}
	if Check(rules, 300*1024, 900, 1199, "jpeg").DimensionsValid {
		t.Fatal("expected height 1199 to be invalid")
	}
	if Check(rules, 300*1024, 4501, 2000, "jpeg").DimensionsValid {
		t.Fatal("expected width 4501 to be invalid")
	}
	if Check(rules, 300*1024, 4500, 6000, "jpeg").DimensionsValid != true {
		t.Fatal("expected 4500x6000 to be valid")
	}
}

func TestCheckFormat(t *testing.T) {
	rules := testRules()

	if !Check(rules, 300*1024, 1500, 2000, "jpeg").FormatValid {
		t.Fatal("expected jpeg to be valid")
	}
	if !Check(rules, 300*1024, 1500, 2000, "JPEG").FormatValid {
		t.Fatal("expected format comparison to be case-insensitive")
	}
	if Check(rules, 300*1024, 1500, 2000, "png").FormatValid {
		t.Fatal("expected png to be invalid")
	}
}

func TestCheckIsDeterministic(t *testing.T) {
	rules := testRules()
	first := Check(rules, 300*1024, 1500, 2000, "jpeg")
	second := Check(rules, 300*1024, 1500, 2000, "jpeg")
	if first != second {
		t.Fatalf("expected identical verdicts, got %+v vs %+v", first, second)
	}
}
