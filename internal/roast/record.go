package roast

import (
	"encoding/json"
	"math"
)

// Record is one tick of telemetry. Records are immutable once appended to
// the Buffer.
type Record struct {
	Temp float64 // smoothed bean temperature
	Time int64   // unix seconds
	RoR  float64 // degrees per minute
	Note Stage
}

// wireRecord is the flat JSON shape the collector expects. Non-finite values
// travel as null because encoding/json rejects NaN and Inf.
type wireRecord struct {
	Temp *float64 `json:"temp"`
	Time int64    `json:"time"`
	RoR  *float64 `json:"ror"`
	Note string   `json:"note"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecord{
		Temp: finite(r.Temp),
		Time: r.Time,
		RoR:  finite(r.RoR),
		Note: string(r.Note),
	})
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Record{
		Temp: orNaN(w.Temp),
		Time: w.Time,
		RoR:  orNaN(w.RoR),
		Note: Stage(w.Note),
	}
	return nil
}
