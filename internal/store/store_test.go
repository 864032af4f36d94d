package store

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestEnumValues(t *testing.T) {
	if string(SchemeFixed) != "fixed" || string(SchemeDynamic) != "dynamic" {
		t.Errorf("unexpected scheme values: %s, %s", SchemeFixed, SchemeDynamic)
	}
	if string(PolarityBenefit) != "benefit" || string(PolarityCost) != "cost" {
		t.Errorf("unexpected polarity values: %s, %s", PolarityBenefit, PolarityCost)
	}
}

func TestCandidateScoresJSONKeys(t *testing.T) {
	criterionID := uuid.MustParse("6f1c2a44-0d7e-4a43-9a39-5d2b0f9d8c11")
	c := Candidate{Name: "Sari", Scores: map[uuid.UUID]float64{criterionID: 87.5}}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	scores, ok := raw["scores"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected scores object, got %T", raw["scores"])
	}
	if scores[criterionID.String()] != 87.5 {
		t.Errorf("expected score keyed by criterion uuid, got %v", scores)
	}
}
