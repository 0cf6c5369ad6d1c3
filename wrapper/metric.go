// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package wrapper

import (
	"fmt"
	"strings"
)

// Metric selects the distortion metric of the active engine.
type Metric int

const (
	L21 Metric = iota
	L2
	Compact
)

var metricNames = [...]string{
	L21:     "l21",
	L2:      "l2",
	Compact: "compact",
}

func (m Metric) Valid() bool {
	return m >= L21 && m <= Compact
}

func (m Metric) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Metric(%d)", int(m))
	}
	return metricNames[m]
}

// ParseMetric returns the metric named s, ignoring case.
func ParseMetric(s string) (Metric, error) {
	for m, name := range metricNames {
		if strings.EqualFold(s, name) {
			return Metric(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedMetric, s)
}
