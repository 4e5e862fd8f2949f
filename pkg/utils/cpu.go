package utils

import "github.com/shirou/gopsutil/cpu"

// CheckCPUUsage reports whether the host is idle enough to take on
// another indexing job, along with the sampled aggregate usage. When
// sampling fails the worker stays on the safe side and declines.
func CheckCPUUsage(maxCPUUsage float64) (bool, float64) {
	samples, err := cpu.Percent(0, false)
	if err != nil || len(samples) == 0 {
		return false, 0
	}
	current := samples[0]
	return current <= maxCPUUsage, current
}
