package activity

import "math"

// aggregates are the session totals derived from the samples.
type aggregates struct {
	Averages
	workJ int64
}

type stat struct {
	sum, n, peak int
}

func (s *stat) add(v *int) {
	if v == nil {
		return
	}
	s.sum += *v
	s.n++
	if s.n == 1 || *v > s.peak {
		s.peak = *v
	}
}

func (s stat) avg() *int {
	if s.n == 0 {
		return nil
	}
	return intp(int(math.Round(float64(s.sum) / float64(s.n))))
}

func (s stat) max() *int {
	if s.n == 0 {
		return nil
	}
	return intp(s.peak)
}

// computeAggregates averages and maximises each metric over the samples that
// carry it. Work is the sum of power times the gap to the previous sample;
// the first sample counts max(1, t) seconds.
func computeAggregates(samples []Sample) aggregates {
	var power, hr, cad stat
	var work int64
	for i, s := range samples {
		power.add(s.Power)
		hr.add(s.HeartRate)
		cad.add(s.Cadence)

		dt := max(1, s.T)
		if i > 0 {
			dt = s.T - samples[i-1].T
		}
		if s.Power != nil && dt > 0 {
			work += int64(*s.Power) * int64(dt)
		}
	}
	return aggregates{
		Averages: Averages{
			AvgPower:     power.avg(),
			MaxPower:     power.max(),
			AvgHeartRate: hr.avg(),
			MaxHeartRate: hr.max(),
			AvgCadence:   cad.avg(),
			MaxCadence:   cad.max(),
		},
		workJ: work,
	}
}
