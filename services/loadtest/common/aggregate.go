package common

import "time"

// Aggregate computes the mean and peak latency of the completed samples. Samples that did not complete are only
// counted as failures, they do not contribute to the latency figures
func Aggregate(samples []TimingSample) AggregateResult {
	result := AggregateResult{}
	var total time.Duration
	for _, s := range samples {
		if !s.Completed() {
			result.Failures++
			continue
		}

		total += s.Elapsed
		result.Count++
		if s.Elapsed > result.Peak {
			result.Peak = s.Elapsed
		}
	}

	if result.Count > 0 {
		result.Average = total / time.Duration(result.Count)
	}

	return result
}

// AggregateResources computes the mean CPU load and the peak heap usage of the samples
func AggregateResources(samples []ResourceSample) ResourceAggregate {
	result := ResourceAggregate{
		Count: len(samples),
	}
	if len(samples) == 0 {
		return result
	}

	sumCPU := 0.0
	for _, s := range samples {
		sumCPU += s.CPULoad1Min
		if s.HeapUsedBytes > result.PeakHeapBytes {
			result.PeakHeapBytes = s.HeapUsedBytes
		}
	}
	result.AverageCPULoad = sumCPU / float64(len(samples))

	return result
}
