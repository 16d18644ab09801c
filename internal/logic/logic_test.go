package logic

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestOutputString(t *testing.T) {
	tests := []struct {
		o    Output
		want string
	}{
		{OutputA, "A"},
		{OutputB, "B"},
		{OutputInvalid, "INVALID"},
		{Output(42), "INVALID"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("Output(%d).String(): got %q, want %q", int(tt.o), got, tt.want)
		}
	}
}

func TestOutputOther(t *testing.T) {
	if OutputA.Other() != OutputB {
		t.Errorf("A.Other(): got %s, want B", OutputA.Other())
	}
	if OutputB.Other() != OutputA {
		t.Errorf("B.Other(): got %s, want A", OutputB.Other())
	}
	if OutputInvalid.Other() != OutputInvalid {
		t.Errorf("INVALID.Other(): got %s, want INVALID", OutputInvalid.Other())
	}
}

func TestOutputValid(t *testing.T) {
	if !OutputA.Valid() || !OutputB.Valid() {
		t.Error("A and B should be valid")
	}
	if OutputInvalid.Valid() {
		t.Error("INVALID should not be valid")
	}
}

func TestNamesName(t *testing.T) {
	n := Names{A: "Desktop", B: "Laptop"}

	if name, ok := n.Name(OutputA); !ok || name != "Desktop" {
		t.Errorf("Name(A): got (%q, %v), want (Desktop, true)", name, ok)
	}
	if name, ok := n.Name(OutputB); !ok || name != "Laptop" {
		t.Errorf("Name(B): got (%q, %v), want (Laptop, true)", name, ok)
	}
	if name, ok := n.Name(OutputInvalid); ok || name != "" {
		t.Errorf("Name(INVALID): got (%q, %v), want (\"\", false)", name, ok)
	}
}

func TestNamesDecode(t *testing.T) {
	n := Names{A: "Desktop", B: "Laptop"}

	tests := []struct {
		payload string
		want    Output
	}{
		{"Desktop", OutputA},
		{"Laptop", OutputB},
		{"Laptop\n", OutputB},
		{"  Desktop ", OutputA},
		{"desktop", OutputInvalid},
		{"", OutputInvalid},
		{"Desk", OutputInvalid},
		{"Desktop Laptop", OutputInvalid},
		{"\x00Laptop", OutputInvalid},
	}
	for _, tt := range tests {
		if got := n.Decode([]byte(tt.payload)); got != tt.want {
			t.Errorf("Decode(%q): got %s, want %s", tt.payload, got, tt.want)
		}
	}
}

func TestNamesParseUnknown(t *testing.T) {
	_, err := DefaultNames.Parse("Tablet")
	if !errors.Is(err, ErrUnknownOutput) {
		t.Errorf("expected ErrUnknownOutput, got %v", err)
	}
}

func TestNamesNameDecodeRoundTrip(t *testing.T) {
	n := Names{A: "Work PC", B: "Gaming PC"}
	for _, o := range []Output{OutputA, OutputB} {
		name, _ := n.Name(o)
		if got := n.Decode([]byte(name)); got != o {
			t.Errorf("round trip %s: got %s", o, got)
		}
	}
}

func TestNamesValidate(t *testing.T) {
	if err := DefaultNames.Validate(); err != nil {
		t.Errorf("default names: unexpected error: %v", err)
	}
	if err := (Names{A: "", B: "Laptop"}).Validate(); err == nil {
		t.Error("expected error for empty name")
	}
	if err := (Names{A: "Same", B: "Same"}).Validate(); err == nil {
		t.Error("expected error for identical names")
	}
}

func TestSampleAverageEmpty(t *testing.T) {
	var s SampleAverage
	if s.Mean() != 0 {
		t.Errorf("empty mean: got %d, want 0", s.Mean())
	}
	if s.Count() != 0 {
		t.Errorf("empty count: got %d, want 0", s.Count())
	}
}

func TestSampleAverageTruncates(t *testing.T) {
	var s SampleAverage
	for _, v := range []int{1, 2, 2} {
		s.Add(v)
	}
	// 5/3 truncates to 1
	if s.Mean() != 1 {
		t.Errorf("mean: got %d, want 1", s.Mean())
	}
	if s.Count() != 3 {
		t.Errorf("count: got %d, want 3", s.Count())
	}
}

func TestSampleAverageNegativeCountsAsZero(t *testing.T) {
	var s SampleAverage
	s.Add(-100)
	s.Add(100)
	if s.Mean() != 50 {
		t.Errorf("mean: got %d, want 50", s.Mean())
	}
}

func TestSampleAverageFullScale(t *testing.T) {
	var s SampleAverage
	for i := 0; i < SamplesPerPass; i++ {
		s.Add(4095)
	}
	if s.Mean() != 4095 {
		t.Errorf("mean: got %d, want 4095", s.Mean())
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name  string
		meanA int
		meanB int
		want  Output
	}{
		{"A higher", 900, 100, OutputA},
		{"B higher", 100, 900, OutputB},
		{"tie", 512, 512, OutputA},
		{"both zero", 0, 0, OutputA},
		{"B by one", 511, 512, OutputB},
		{"A by one", 512, 511, OutputA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.meanA, tt.meanB); got != tt.want {
				t.Errorf("Decide(%d, %d): got %s, want %s", tt.meanA, tt.meanB, got, tt.want)
			}
		})
	}
}

func TestDecideRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		var a, b SampleAverage
		sumA, sumB := 0, 0
		for j := 0; j < SamplesPerPass; j++ {
			ra := rng.Intn(4096)
			rb := rng.Intn(4096)
			a.Add(ra)
			b.Add(rb)
			sumA += ra
			sumB += rb
		}
		meanA := sumA / SamplesPerPass
		meanB := sumB / SamplesPerPass

		want := OutputB
		if meanA >= meanB {
			want = OutputA
		}
		if got := Decide(a.Mean(), b.Mean()); got != want {
			t.Fatalf("iteration %d: means (%d, %d): got %s, want %s", i, meanA, meanB, got, want)
		}
	}
}

func TestRetryPolicyDefault(t *testing.T) {
	if DefaultRetryPolicy.MaxAttempts != 60 {
		t.Errorf("MaxAttempts: got %d, want 60", DefaultRetryPolicy.MaxAttempts)
	}
	if DefaultRetryPolicy.Interval != time.Second {
		t.Errorf("Interval: got %v, want 1s", DefaultRetryPolicy.Interval)
	}
	if DefaultRetryPolicy.Budget() != time.Minute {
		t.Errorf("Budget: got %v, want 1m", DefaultRetryPolicy.Budget())
	}
}

func TestRetryPolicyExhausted(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Interval: time.Second}
	for attempts, want := range []bool{false, false, false, true, true} {
		if got := p.Exhausted(attempts); got != want {
			t.Errorf("Exhausted(%d): got %v, want %v", attempts, got, want)
		}
	}
}

func TestRetryPolicyZeroBudget(t *testing.T) {
	p := RetryPolicy{}
	if p.Budget() != 0 {
		t.Errorf("Budget: got %v, want 0", p.Budget())
	}
	if !p.Exhausted(0) {
		t.Error("zero policy should be exhausted immediately")
	}
}

func TestHeartbeatDisabledWithZeroInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHeartbeat(start, 0)
	if hb := h.Check(start.Add(24 * time.Hour)); hb != nil {
		t.Errorf("expected nil heartbeat when disabled, got %+v", hb)
	}
}

func TestHeartbeatBeforeInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHeartbeat(start, 15*time.Minute)
	if hb := h.Check(start.Add(14 * time.Minute)); hb != nil {
		t.Errorf("expected nil heartbeat before interval, got %+v", hb)
	}
}

func TestHeartbeatAtInterval(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHeartbeat(start, 15*time.Minute)
	now := start.Add(15 * time.Minute)

	hb := h.Check(now)
	if hb == nil {
		t.Fatal("expected heartbeat at interval")
	}
	if !hb.Timestamp.Equal(now) {
		t.Errorf("Timestamp: got %v, want %v", hb.Timestamp, now)
	}
	if hb.Uptime != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", hb.Uptime)
	}
}

func TestHeartbeatUpdatesLastTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h := NewHeartbeat(start, 15*time.Minute)

	if h.Check(start.Add(15*time.Minute)) == nil {
		t.Fatal("expected first heartbeat")
	}
	if hb := h.Check(start.Add(20 * time.Minute)); hb != nil {
		t.Error("second heartbeat fired too early")
	}
	hb := h.Check(start.Add(30 * time.Minute))
	if hb == nil {
		t.Fatal("expected second heartbeat")
	}
	if hb.Uptime != 30*time.Minute {
		t.Errorf("Uptime: got %v, want 30m", hb.Uptime)
	}
}
