package mixer

// Updater is notified once the bit it predicted is known.
type Updater interface {
	Update()
}

// UpdateBroadcaster queues the nodes that made a prediction in the current
// round and notifies them, in the order they subscribed, once the outcome is
// known.
type UpdateBroadcaster struct {
	queue    []Updater
	draining bool
}

// Subscribe queues u for the next Broadcast. It panics if called from an
// Update, since that would let a round leak into the next one.
func (b *UpdateBroadcaster) Subscribe(u Updater) {
	if b.draining {
		panic("mixer: subscribe during broadcast")
	}
	b.queue = append(b.queue, u)
}

// Broadcast calls Update on every queued node exactly once, in subscription
// order, and empties the queue.
func (b *UpdateBroadcaster) Broadcast() {
	b.draining = true
	defer func() { b.draining = false }()
	for i, u := range b.queue {
		u.Update()
		b.queue[i] = nil
	}
	b.queue = b.queue[:0]
}

// Pending returns the number of nodes awaiting an update.
func (b *UpdateBroadcaster) Pending() int {
	return len(b.queue)
}
