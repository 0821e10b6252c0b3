// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10state

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/x10gate/pkg/x10"
)

// Report renders the ST status dump: selected units, known unit states and
// the sensor registry with time since each sensor last reported.
func (s *Store) Report() []string {
	lines := []string{"Device selected"}
	for h := x10.House(0); h < x10.NumHouses; h++ {
		var units []string
		for u := x10.Unit(0); u < x10.NumUnits; u++ {
			if s.IsSelected(h, u) {
				units = append(units, u.String())
			}
		}
		if len(units) > 0 {
			lines = append(lines, fmt.Sprintf("House %s: %s", h, strings.Join(units, ",")))
		}
	}

	lines = append(lines, "Device status")
	for h := x10.House(0); h < x10.NumHouses; h++ {
		var units []string
		for u := x10.Unit(0); u < x10.NumUnits; u++ {
			if st := s.status[h][u]; st.Power != PowerUnknown {
				units = append(units, fmt.Sprintf("%s=%s", u, st))
			}
		}
		if len(units) > 0 {
			lines = append(lines, fmt.Sprintf("House %s: %s", h, strings.Join(units, ",")))
		}
	}

	lines = append(lines, "Security sensor status")
	now := s.now()
	for _, sen := range s.Sensors() {
		lines = append(lines, fmt.Sprintf("Sensor addr: %X Last: %s %s ",
			sen.Addr, formatElapsed(now.Sub(sen.LastUpdate)), sen.Name()))
	}

	return append(lines, "End status")
}

// String renders a unit state as power, then "(level)" when a dim level is
// known and "/preset" when an extended preset is known, e.g. "1(53)/128"
func (st Status) String() string {
	out := st.Power.String()
	if st.LevelKnown {
		out += fmt.Sprintf("(%d)", st.Level)
	}
	if st.PresetKnown {
		out += fmt.Sprintf("/%d", st.Preset)
	}
	return out
}

// formatElapsed prints whole minutes and seconds as MM:SS
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
