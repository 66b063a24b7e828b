package mixer

// Learning rates are 16.16 fixed point. Every update lowers a context's rate
// by one unit until it reaches the floor for the node's position in the tree.
const (
	MaxLearningRate         = 8*65536 - 1
	MinLearningRateLeaf     = 2*65536 - 1
	MinLearningRateInternal = 6*65536 - 1
)

type options struct {
	promoted      int
	rate          int
	leafFloor     int
	internalFloor int
}

func defaultOptions() options {
	return options{
		rate:          MaxLearningRate,
		leafFloor:     MinLearningRateLeaf,
		internalFloor: MinLearningRateInternal,
	}
}

// Option configures a Mixer.
type Option func(*options)

// WithPromoted reserves k extra combiner inputs for values passed to
// Promote.
func WithPromoted(k int) Option {
	return func(o *options) { o.promoted = k }
}

// WithLearningRate sets the initial learning rate of every context.
func WithLearningRate(rate int) Option {
	return func(o *options) { o.rate = rate }
}

// WithFloors sets the lowest learning rate a leaf node and an internal node
// decay to.
func WithFloors(leaf, internal int) Option {
	return func(o *options) {
		o.leafFloor = leaf
		o.internalFloor = internal
	}
}

func (o options) validate() {
	switch {
	case o.promoted < 0:
		panic("mixer: negative promoted input count")
	case o.leafFloor <= 0 || o.internalFloor <= 0:
		panic("mixer: learning rate floor must be positive")
	case o.rate <= 0:
		panic("mixer: learning rate must be positive")
	}
}
