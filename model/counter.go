package model

// Counter is an adaptive estimate of the probability that a bit is 1, held
// in 16 bits. Each update moves it 1/2^rate of the way toward the outcome.
type Counter uint16

// NewCounter returns a counter at one half.
func NewCounter() Counter { return 1 << 15 }

// P12 returns the estimate as a 12-bit probability.
func (c Counter) P12() int { return int(c >> 4) }

// Update moves the estimate toward bit.
func (c *Counter) Update(bit, rate int) {
	p := int(*c)
	if bit != 0 {
		p += (65535 - p) >> rate
	} else {
		p -= p >> rate
	}
	*c = Counter(p)
}
