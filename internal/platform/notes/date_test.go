package notes

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateOf_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2023, 1, 5, 23, 30, 0, 0, loc)
	if got := DateOf(ts); got != (Date{2023, time.January, 5}) {
		t.Errorf("DateOf = %v, want 2023-01-05", got)
	}
}

func TestDate_String(t *testing.T) {
	if got := (Date{2023, time.March, 7}).String(); got != "2023-03-07" {
		t.Errorf("String() = %q", got)
	}
}

func TestDate_JSONMapKey(t *testing.T) {
	data, err := json.Marshal(Notes{{2023, time.January, 5}: "visit"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"2023-01-05":"visit"}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var back Notes
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[Date{2023, time.January, 5}] != "visit" {
		t.Errorf("unexpected round trip result: %v", back)
	}
}
