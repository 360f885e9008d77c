package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAnswersAcceptsStringMap(t *testing.T) {
	answers, err := ParseAnswers(json.RawMessage(`{"1":"High"," 4 ":"hihihi","7":""}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if answers[1] != "High" || answers[4] != "hihihi" {
		t.Fatalf("unexpected answers %+v", answers)
	}
	if v, ok := answers[7]; !ok || v != "" {
		t.Fatalf("expected empty answer for 7, got %q (present=%v)", v, ok)
	}
}

func TestParseAnswersRejectsMalformedPayloads(t *testing.T) {
	cases := map[string]string{
		"missing":      ``,
		"null":         `null`,
		"array":        `["High"]`,
		"string":       `"High"`,
		"non-int key":  `{"one":"High"}`,
		"number value": `{"1":10}`,
		"nested value": `{"1":{"a":"b"}}`,
		"null value":   `{"1":null}`,
	}
	for name, raw := range cases {
		if _, err := ParseAnswers(json.RawMessage(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestEncodeAnswersRoundTrips(t *testing.T) {
	raw := EncodeAnswers(map[int]string{3: "SRTF"})
	answers, err := ParseAnswers(raw)
	if err != nil {
		t.Fatalf("parse encoded: %v", err)
	}
	if answers[3] != "SRTF" {
		t.Fatalf("expected SRTF, got %+v", answers)
	}
}

func TestTeamKeyFoldsCaseAndSpace(t *testing.T) {
	if TeamKey("  Alpha Team ") != TeamKey("alpha team") {
		t.Fatalf("expected equal keys")
	}
}

func TestErrorKinds(t *testing.T) {
	err := StoreFailure("insert submission", errors.New("connection reset"))
	if KindOf(err) != KindStore {
		t.Fatalf("expected store kind, got %v", KindOf(err))
	}
	if PublicMessage(err) != "Server error" {
		t.Fatalf("store errors must not leak internals, got %q", PublicMessage(err))
	}
	if PublicMessage(Conflict("already submitted for round %d", 2)) != "already submitted for round 2" {
		t.Fatalf("unexpected conflict message")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected unknown kind for untyped error")
	}
}
