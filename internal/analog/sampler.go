package analog

import (
	"log"
	"sync"

	"github.com/sweeney/usb-switch/internal/logic"
)

// Sampler decides which output is active by comparing averaged channel levels.
type Sampler struct {
	mu      sync.Mutex
	r       Reader
	n       int
	failing bool // a read failed during the previous pass
}

// NewSampler creates a Sampler taking n conversions per channel per pass.
// n <= 0 selects logic.SamplesPerPass.
func NewSampler(r Reader, n int) *Sampler {
	if n <= 0 {
		n = logic.SamplesPerPass
	}
	return &Sampler{r: r, n: n}
}

// ActiveOutput runs one sampling pass and returns the active output.
// It never returns logic.OutputInvalid.
func (s *Sampler) ActiveOutput() logic.Output {
	a, b := s.Means()
	return logic.Decide(a, b)
}

// Means runs one sampling pass and returns the integer mean per channel.
// A failed conversion counts as zero. Passes are serialized.
func (s *Sampler) Means() (a, b int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var avgA, avgB logic.SampleAverage
	var failures int
	var firstErr error

	for i := 0; i < s.n; i++ {
		ra, err := s.r.ReadRaw(ChannelA)
		if err != nil {
			failures++
			if firstErr == nil {
				firstErr = err
			}
			ra = 0
		}
		avgA.Add(ra)

		rb, err := s.r.ReadRaw(ChannelB)
		if err != nil {
			failures++
			if firstErr == nil {
				firstErr = err
			}
			rb = 0
		}
		avgB.Add(rb)
	}

	// Log on state change only; the pass runs every poll interval.
	if failures > 0 && !s.failing {
		log.Printf("analog: %d of %d reads failed, counted as 0: %v", failures, 2*s.n, firstErr)
	} else if failures == 0 && s.failing {
		log.Printf("analog: reads recovered")
	}
	s.failing = failures > 0

	return avgA.Mean(), avgB.Mean()
}
