package models

import (
	"encoding/json"
	"testing"
)

func TestFlexUnmarshal_AllStrings(t *testing.T) {
	input := `{"id": "51234", "name": "Bloodbath", "author": "Riot", "creators": ["Riot", "Knobbelboy"], "verifier": "Riot", "verification": "https://youtu.be/x", "percentToQualify": "60", "songID": 467339, "records": [{"user": "Zoink", "percent": "100", "link": "https://youtu.be/a", "mobile": "true"}, {"user": "Cursed", "percent": "87%", "link": "https://youtu.be/b"}]}`

	var level Level
	if err := json.Unmarshal([]byte(input), &level); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if level.ID != 51234 {
		t.Errorf("ID = %d, want 51234", level.ID)
	}
	if level.Name != "Bloodbath" {
		t.Errorf("Name = %q, want Bloodbath", level.Name)
	}
	if level.PercentToQualify != 60 {
		t.Errorf("PercentToQualify = %f, want 60", level.PercentToQualify)
	}
	if level.SongID != "467339" {
		t.Errorf("SongID = %q, want 467339", level.SongID)
	}
	if len(level.Creators) != 2 {
		t.Errorf("Creators = %v, want 2 entries", level.Creators)
	}
	if len(level.Records) != 2 {
		t.Fatalf("Records = %d, want 2", len(level.Records))
	}
	if r := level.Records[0]; r.Percent != 100 || !r.Mobile || r.User != "Zoink" {
		t.Errorf("Records[0] = %+v", r)
	}
	if r := level.Records[1]; r.Percent != 87 || r.Mobile {
		t.Errorf("Records[1] = %+v", r)
	}
}

func TestFlexUnmarshal_NativeTypes(t *testing.T) {
	input := `{"name": "Tartarus", "percentToQualify": 54.5, "records": [{"user": "Dolphy", "percent": 100, "link": "l", "mobile": false}]}`

	var level Level
	if err := json.Unmarshal([]byte(input), &level); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if level.PercentToQualify != 54.5 {
		t.Errorf("PercentToQualify = %f, want 54.5", level.PercentToQualify)
	}
	if !level.Records[0].Completed() {
		t.Errorf("Records[0] should be a completion: %+v", level.Records[0])
	}
}

func TestFlexUnmarshal_UnparseableStringLeavesZero(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"user": "x", "percent": "lots"}`), &r); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if r.Percent != 0 {
		t.Errorf("Percent = %f, want 0", r.Percent)
	}
}

func TestFlexUnmarshal_BadRecordsFailsLevel(t *testing.T) {
	var level Level
	err := json.Unmarshal([]byte(`{"name": "x", "records": [1, 2]}`), &level)
	if err == nil {
		t.Fatal("Expected error for non-object records")
	}
}

func TestFlexUnmarshal_NotAnObject(t *testing.T) {
	var level Level
	if err := json.Unmarshal([]byte(`[1,2,3]`), &level); err == nil {
		t.Fatal("Expected error for array input")
	}
}
