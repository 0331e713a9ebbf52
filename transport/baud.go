package transport

import "sort"

// SupportedRates is the descending ladder of line rates this
// transport can program, from the platform's highest supported rate
// down to 9600. It mirrors the termios CBAUD speed table
// internal/serial exposes (B9600..B4000000).
var SupportedRates = []int{
	4000000, 3500000, 3000000, 2500000, 2000000, 1500000, 1152000,
	1000000, 921600, 576000, 500000, 460800, 230400, 115200, 57600,
	38400, 19200, 9600,
}

// BestRate returns the highest rate in SupportedRates that does not
// exceed max. It is monotone nondecreasing in max, and returns 9600 -
// the floor of the ladder - if max is below every supported rate.
func BestRate(max int) int {
	best := SupportedRates[len(SupportedRates)-1]
	for _, r := range SupportedRates {
		if r <= max && r > best {
			best = r
		}
	}
	return best
}

func init() {
	// SupportedRates must stay sorted descending; BestRate takes the
	// last entry as the ladder's floor.
	if !sort.SliceIsSorted(SupportedRates, func(i, j int) bool { return SupportedRates[i] > SupportedRates[j] }) {
		panic("transport: SupportedRates is not sorted descending")
	}
}
