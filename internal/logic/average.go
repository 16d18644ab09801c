package logic

// SamplesPerPass is the number of ADC conversions taken per channel in one
// sampling pass. The LED driver lines sit near the logic threshold, so a
// single conversion is too noisy to compare.
const SamplesPerPass = 128

// SampleAverage accumulates raw conversions for one channel during a single
// sampling pass and reduces them to an integer mean.
type SampleAverage struct {
	sum   uint64
	count int
}

// Add accumulates one raw conversion. Negative readings count as zero.
func (s *SampleAverage) Add(raw int) {
	if raw > 0 {
		s.sum += uint64(raw)
	}
	s.count++
}

// Count returns the number of conversions accumulated.
func (s *SampleAverage) Count() int {
	return s.count
}

// Mean returns the truncated integer mean, or 0 if nothing was accumulated.
func (s *SampleAverage) Mean() int {
	if s.count == 0 {
		return 0
	}
	return int(s.sum / uint64(s.count))
}

// Decide returns the active output for a pair of channel means.
// The strictly higher mean wins; a tie resolves to OutputA.
func Decide(meanA, meanB int) Output {
	if meanB > meanA {
		return OutputB
	}
	return OutputA
}
