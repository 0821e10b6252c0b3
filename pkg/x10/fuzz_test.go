// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package x10

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// ============================================================
// Random Byte Tests
// ============================================================

func TestFuzz_DecodeRandomFrames(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for _, model := range []Model{ModelCM15A, ModelCM19A} {
		d := NewDecoder(model)
		for i := 0; i < rounds; i++ {
			frame := make([]byte, rng.Intn(12))
			rng.Read(frame)
			if len(frame) > 0 && rng.Intn(2) == 0 {
				frame[0] = []byte{MarkerPLRx, MarkerRFRx}[rng.Intn(2)]
			}

			ev, err := d.Decode(frame)
			if err != nil && ev != nil {
				t.Fatalf("frame % X: both event and error returned", frame)
			}
			if ev != nil && ev.String() == "" {
				t.Fatalf("frame % X: empty line", frame)
			}
		}
	}
}

// ============================================================
// Random Command Round Trips
// ============================================================

func TestFuzz_PLCommandRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	e := NewEncoder(ModelCM15A)

	for i := 0; i < getFuzzRounds(); i++ {
		h := House(rng.Intn(NumHouses))
		u := Unit(rng.Intn(NumUnits))
		f := Function(rng.Intn(int(FuncXDim) + 1))
		line := fmt.Sprintf("PL %s%s %s", h, u, f.Command())
		param := 0
		if f.HasParam() {
			limit := MaxDimSteps
			if f == FuncXDim {
				limit = MaxXDimLevel
			}
			param = rng.Intn(limit + 1)
			line += " " + strconv.Itoa(param)
		}

		cmd, err := ParseCommand(line)
		if err != nil {
			t.Fatalf("%q: parse: %v", line, err)
		}
		frames, err := e.Encode(cmd)
		if err != nil {
			t.Fatalf("%q: encode: %v", line, err)
		}
		if len(frames) != 2 {
			t.Fatalf("%q: expected 2 frames, got %d", line, len(frames))
		}

		addr, err := DecodeEcho(frames[0])
		if err != nil || addr.House != h || addr.Unit != u {
			t.Fatalf("%q: address echo %v %v", line, addr, err)
		}
		fn, err := DecodeEcho(frames[1])
		if err != nil {
			t.Fatalf("%q: function echo: %v", line, err)
		}
		if fn.House != h {
			t.Fatalf("%q: house %s", line, fn.House)
		}
		switch f {
		case FuncXDim:
			if fn.Data != byte(param) || fn.Command != ExtCommandPresetDim {
				t.Fatalf("%q: extended echo %s", line, fn)
			}
		case FuncDim, FuncBright:
			if fn.Function != f || fn.Steps != param {
				t.Fatalf("%q: dim echo %s", line, fn)
			}
		default:
			if fn.Function != f {
				t.Fatalf("%q: function echo %s", line, fn)
			}
		}
		// The echo and the wire payload carry the same code bytes
		if !bytes.Equal(frames[1].Wire[1:], frames[1].Echo[len(frames[1].Echo)-len(frames[1].Wire)+1:]) {
			t.Fatalf("%q: wire % X does not match echo % X", line, frames[1].Wire, frames[1].Echo)
		}
	}
}

func TestFuzz_RFSecurityRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	e := NewEncoder(ModelCM15A)

	for i := 0; i < getFuzzRounds(); i++ {
		short := rng.Intn(2) == 0
		var addr uint32
		var code byte
		if short {
			addr = uint32(rng.Intn(256))
			code = sec8BitCommands[rng.Intn(len(sec8BitCommands))].code
		} else {
			// Parity over the low address bytes must be even to decode
			for {
				addr = uint32(rng.Intn(1 << 24))
				if !OddParity(byte(addr>>8) ^ byte(addr)) {
					break
				}
			}
			code = secLongCommands[rng.Intn(len(secLongCommands))].code
		}

		f := e.EncodeRFSecurity(addr, short, code)
		rx := append([]byte{MarkerRFRx}, f.Wire[1:]...)
		ev, err := DecodeRF(rx)
		if err != nil {
			t.Fatalf("addr %06X short=%v: %v", addr, short, err)
		}
		if ev.SecAddr != addr || ev.SecCode != code || ev.SecShort != short {
			t.Fatalf("addr %06X short=%v: got %s", addr, short, ev)
		}
	}
}
