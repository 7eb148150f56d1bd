// Package store keeps delivered roast telemetry in CSV files with daily
// rotation. Files live in ~/.roaster/data/YYYY-MM-DD.csv unless another
// directory is configured.
package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/luki/roaster/internal/roast"
)

const (
	dirName    = ".roaster/data"
	timeLayout = "2006-01-02T15:04:05"
	fileLayout = "2006-01-02"
)

var header = []string{"time", "session", "temp", "ror", "note"}

// DiskStore appends records to the CSV file of the day each record was
// taken on. Safe for concurrent use.
//
//	time,session,temp,ror,note
type DiskStore struct {
	dir string

	mu      sync.Mutex
	current *os.File
	curDate string
}

// StoredRecord is a single row from a CSV telemetry file.
type StoredRecord struct {
	Time    time.Time
	Session string
	Temp    float64
	RoR     float64
	Note    roast.Stage
}

// New creates a disk store in dir ("" means DataDir), creating it if needed.
func New(dir string) (*DiskStore, error) {
	if dir == "" {
		dir = DataDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create data dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (d *DiskStore) Dir() string { return d.dir }

// Write appends a batch for session. Every row is encoded and every day
// file the batch touches is opened before anything is written, so a bad
// directory or an unencodable row leaves the files untouched.
func (d *DiskStore) Write(session string, records []roast.Record) error {
	if len(records) == 0 {
		return nil
	}

	type chunk struct {
		date string
		rows bytes.Buffer
	}
	var chunks []*chunk
	for _, r := range records {
		t := time.Unix(r.Time, 0)
		date := t.Format(fileLayout)
		if len(chunks) == 0 || chunks[len(chunks)-1].date != date {
			chunks = append(chunks, &chunk{date: date})
		}
		c := chunks[len(chunks)-1]
		if err := encodeRow(&c.rows, []string{
			t.Format(timeLayout),
			session,
			formatFloat(r.Temp),
			formatFloat(r.RoR),
			string(r.Note),
		}); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	files := make(map[string]*os.File)
	var opened []*os.File
	release := func(keep *os.File) {
		for _, f := range opened {
			if f != keep {
				f.Close()
			}
		}
	}
	for _, c := range chunks {
		if _, ok := files[c.date]; ok {
			continue
		}
		if c.date == d.curDate && d.current != nil {
			files[c.date] = d.current
			continue
		}
		f, err := openDay(d.dir, c.date)
		if err != nil {
			release(nil)
			return err
		}
		opened = append(opened, f)
		files[c.date] = f
	}

	for _, c := range chunks {
		if _, err := files[c.date].Write(c.rows.Bytes()); err != nil {
			release(nil)
			return err
		}
	}

	last := chunks[len(chunks)-1].date
	if f := files[last]; f != d.current {
		d.closeLocked()
		d.current, d.curDate = f, last
	}
	release(d.current)
	return nil
}

// openDay opens the day file for appending, writing the header to a new file.
func openDay(dir, date string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(dir, date+".csv"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	if info, err := f.Stat(); err == nil && info.Size() == 0 {
		var hdr bytes.Buffer
		if err := encodeRow(&hdr, header); err == nil {
			if _, err := f.Write(hdr.Bytes()); err != nil {
				f.Close()
				return nil, err
			}
		}
	}
	return f, nil
}

func encodeRow(buf *bytes.Buffer, row []string) error {
	w := csv.NewWriter(buf)
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Close closes the current file.
func (d *DiskStore) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *DiskStore) closeLocked() error {
	if d.current == nil {
		return nil
	}
	err := d.current.Close()
	d.current = nil
	d.curDate = ""
	return err
}

// ListDays returns available log dates (newest first).
func ListDays(dir string) ([]string, error) {
	if dir == "" {
		dir = DataDir()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var days []string
	for i := len(entries) - 1; i >= 0; i-- {
		name := entries[i].Name()
		if strings.HasSuffix(name, ".csv") {
			days = append(days, strings.TrimSuffix(name, ".csv"))
		}
	}
	return days, nil
}

// LoadDay reads all records from a specific day's CSV file in dir.
func LoadDay(dir, day string) ([]StoredRecord, error) {
	if dir == "" {
		dir = DataDir()
	}
	return LoadFile(filepath.Join(dir, day+".csv"))
}

// LoadFile reads all records from a CSV file. Malformed rows are skipped.
func LoadFile(path string) ([]StoredRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var records []StoredRecord
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "time" {
			continue
		}
		if len(row) < 5 {
			continue
		}

		t, err := time.ParseInLocation(timeLayout, row[0], time.Local)
		if err != nil {
			continue
		}

		records = append(records, StoredRecord{
			Time:    t,
			Session: row[1],
			Temp:    parseFloat(row[2]),
			RoR:     parseFloat(row[3]),
			Note:    roast.Stage(row[4]),
		})
	}

	return records, nil
}

// Session is one roast's rows within a day.
type Session struct {
	ID      string
	Start   time.Time
	End     time.Time
	Records []StoredRecord
}

// Peak returns the highest temperature in the session, ignoring gaps.
func (s Session) Peak() float64 {
	peak := math.Inf(-1)
	for _, r := range s.Records {
		if !math.IsNaN(r.Temp) && r.Temp > peak {
			peak = r.Temp
		}
	}
	if math.IsInf(peak, -1) {
		return 0
	}
	return peak
}

// Markers returns the records carrying a stage note.
func (s Session) Markers() []StoredRecord {
	var out []StoredRecord
	for _, r := range s.Records {
		if r.Note != roast.StageNone {
			out = append(out, r)
		}
	}
	return out
}

// GroupSessions splits rows by session, each sorted by time, sessions
// ordered by start.
func GroupSessions(records []StoredRecord) []Session {
	idx := make(map[string]int)
	var sessions []Session
	for _, r := range records {
		i, ok := idx[r.Session]
		if !ok {
			i = len(sessions)
			idx[r.Session] = i
			sessions = append(sessions, Session{ID: r.Session})
		}
		sessions[i].Records = append(sessions[i].Records, r)
	}

	for i := range sessions {
		recs := sessions[i].Records
		sort.SliceStable(recs, func(a, b int) bool { return recs[a].Time.Before(recs[b].Time) })
		sessions[i].Start = recs[0].Time
		sessions[i].End = recs[len(recs)-1].Time
	}
	sort.SliceStable(sessions, func(a, b int) bool { return sessions[a].Start.Before(sessions[b].Start) })
	return sessions
}

// DataDir returns the default data directory.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName)
}

// Non-finite values are stored as empty fields.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
