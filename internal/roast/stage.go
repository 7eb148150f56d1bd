package roast

import (
	"fmt"
	"strings"
)

// Stage is an operator-entered roast phase marker. The zero value means no
// marker.
type Stage string

const (
	StageNone        Stage = ""
	StageCharge      Stage = "Charge"
	StageFirstCrack  Stage = "Crack1"
	StageSecondCrack Stage = "Crack2"
	StageDrop        Stage = "Drop"
)

var stages = []Stage{StageCharge, StageFirstCrack, StageSecondCrack, StageDrop}

// Stages returns the markers an operator can enter, in roast order.
func Stages() []Stage {
	return append([]Stage(nil), stages...)
}

// ParseStage matches s case-insensitively against the known markers.
// The legacy spellings "Clack1" and "Clack2" are accepted as well.
func ParseStage(s string) (Stage, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return StageNone, nil
	}
	if strings.HasPrefix(strings.ToLower(v), "clack") {
		v = "crack" + v[len("clack"):]
	}
	for _, st := range stages {
		if strings.EqualFold(v, string(st)) {
			return st, nil
		}
	}
	return StageNone, fmt.Errorf("%w: %q", ErrUnknownStage, s)
}

func (s Stage) String() string { return string(s) }
