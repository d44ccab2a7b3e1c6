package compliance

import "testing"

const verdictJSON = `{
  "passed": true,
  "score": 88,
  "checks": {
    "background": "Pass",
    "face_position": "Pass",
    "expression": "Fail",
    "lighting": "Pass",
    "sharpness": "Pass"
  },
  "feedback": "Smile less."
}`

func TestParseVerdict(t *testing.T) {
	verdict, err := parseVerdict(verdictJSON)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !verdict.Passed || verdict.Score != 88 {
		t.Fatalf("unexpected verdict: %+v", verdict)
	}
	if verdict.Checks.Expression != "Fail" {
		t.Fatalf("expected expression Fail, got %q", verdict.Checks.Expression)
	}
}

func TestParseVerdictStripsCodeFences(t *testing.T) {
	verdict, err := parseVerdict("```json\n" + verdictJSON + "\n```")
	if err != nil {
		t.Fatalf("parse fenced: %v", err)
	}
	if verdict.Feedback != "Smile less." {
		t.Fatalf("unexpected feedback: %q", verdict.Feedback)
	}
}

func TestParseVerdictRejectsGarbage(t *testing.T) {
	if _, err := parseVerdict("I think the photo looks fine!"); err == nil {
		t.Fatal("expected parse error for prose response")
	}
	if _, err := parseVerdict(`{"passed": true, "score": 150, "checks": {"background": "Pass"}}`); err == nil {
		t.Fatal("expected error for out-of-range score")
	}
	if _, err := parseVerdict(`{"passed": true, "score": 90}`); err == nil {
		t.Fatal("expected error for missing checks")
	}
}
