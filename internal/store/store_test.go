package store

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luki/roaster/internal/roast"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ds, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer ds.Close()

	now := time.Date(2026, 2, 21, 14, 30, 0, 0, time.Local)
	records := []roast.Record{
		{Temp: 181.25, Time: now.Unix(), RoR: 9.5, Note: roast.StageFirstCrack},
		{Temp: math.NaN(), Time: now.Add(time.Second).Unix(), RoR: math.Inf(1)},
	}

	if err := ds.Write("s1", records); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ds.Close()

	loaded, err := LoadFile(filepath.Join(dir, "2026-02-21.csv"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}

	first := loaded[0]
	if first.Session != "s1" || first.Temp != 181.25 || first.RoR != 9.5 || first.Note != roast.StageFirstCrack {
		t.Errorf("first record: got %+v", first)
	}
	if !first.Time.Equal(now) {
		t.Errorf("first time: got %v, want %v", first.Time, now)
	}
	if !math.IsNaN(loaded[1].Temp) || !math.IsNaN(loaded[1].RoR) || loaded[1].Note != roast.StageNone {
		t.Errorf("second record: got %+v", loaded[1])
	}
}

func TestDiskStoreRotatesDaily(t *testing.T) {
	dir := t.TempDir()
	ds, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}

	late := time.Date(2026, 2, 21, 23, 59, 59, 0, time.Local)
	records := []roast.Record{
		{Temp: 200, Time: late.Unix()},
		{Temp: 201, Time: late.Add(time.Second).Unix()},
	}
	if err := ds.Write("night", records); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Appending to an existing file must not repeat the header.
	if err := ds.Write("night", records[1:]); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ds.Close()

	days, err := ListDays(dir)
	if err != nil {
		t.Fatalf("ListDays: %v", err)
	}
	if len(days) != 2 || days[0] != "2026-02-22" || days[1] != "2026-02-21" {
		t.Fatalf("days: got %v", days)
	}

	next, err := LoadDay(dir, "2026-02-22")
	if err != nil {
		t.Fatal(err)
	}
	if len(next) != 2 {
		t.Errorf("expected 2 records after midnight, got %d", len(next))
	}
}

func TestGroupSessions(t *testing.T) {
	base := time.Date(2026, 2, 21, 9, 0, 0, 0, time.Local)
	rows := []StoredRecord{
		{Time: base.Add(61 * time.Minute), Session: "b", Temp: 150},
		{Time: base.Add(time.Second), Session: "a", Temp: 195, Note: roast.StageFirstCrack},
		{Time: base, Session: "a", Temp: 190},
		{Time: base.Add(60 * time.Minute), Session: "b", Temp: math.NaN(), Note: roast.StageCharge},
	}

	sessions := GroupSessions(rows)
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	a, b := sessions[0], sessions[1]
	if a.ID != "a" || !a.Start.Equal(base) || !a.End.Equal(base.Add(time.Second)) {
		t.Errorf("session a: got %s %v..%v", a.ID, a.Start, a.End)
	}
	if a.Peak() != 195 {
		t.Errorf("session a peak: got %f", a.Peak())
	}
	if b.ID != "b" || b.Peak() != 150 {
		t.Errorf("session b: got %s peak %f", b.ID, b.Peak())
	}
	if m := b.Markers(); len(m) != 1 || m[0].Note != roast.StageCharge {
		t.Errorf("session b markers: got %+v", m)
	}
}

func TestDiskStoreWriteIsAllOrNothing(t *testing.T) {
	dir := t.TempDir()
	ds, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()

	late := time.Date(2026, 2, 21, 23, 59, 59, 0, time.Local)
	batch := []roast.Record{
		{Temp: 200, Time: late.Unix()},
		{Temp: 201, Time: late.Add(time.Second).Unix()},
	}

	// A directory where the second day's file should be makes the open fail.
	blocker := filepath.Join(dir, "2026-02-22.csv")
	if err := os.Mkdir(blocker, 0755); err != nil {
		t.Fatal(err)
	}
	if err := ds.Write("s1", batch); err == nil {
		t.Fatal("expected write to fail")
	}
	if recs, err := LoadDay(dir, "2026-02-21"); err == nil && len(recs) != 0 {
		t.Fatalf("failed write left %d rows behind", len(recs))
	}

	if err := os.Remove(blocker); err != nil {
		t.Fatal(err)
	}
	if err := ds.Write("s1", batch); err != nil {
		t.Fatalf("retry: %v", err)
	}
	ds.Close()

	for _, day := range []string{"2026-02-21", "2026-02-22"} {
		recs, err := LoadDay(dir, day)
		if err != nil {
			t.Fatalf("LoadDay %s: %v", day, err)
		}
		if len(recs) != 1 {
			t.Errorf("%s: got %d rows, want 1", day, len(recs))
		}
	}
}
