package sim

import "container/heap"

// ChannelStats counts what the channel did with the frames it was given.
type ChannelStats struct {
	Sent      int
	Dropped   int
	Delivered int
}

// Channel models a lossy link that may hold frames back and release them out
// of order. Held frames wait in a priority queue; they are released, lowest
// priority first, ahead of the next frame that passes straight through, or by
// Flush.
type Channel struct {
	pLoss    float64
	pReorder float64
	rng      RandomSource

	held  heldQueue
	seq   int
	stats ChannelStats
}

// NewChannel creates a channel driven entirely by rng.
func NewChannel(pLoss, pReorder float64, rng RandomSource) *Channel {
	return &Channel{
		pLoss:    pLoss,
		pReorder: pReorder,
		rng:      rng,
	}
}

// Send offers one frame to the channel and returns the frames released now.
func (c *Channel) Send(frame Frame) []Frame {
	c.stats.Sent++
	if draw(c.pLoss, c.rng) {
		c.stats.Dropped++
		return nil
	}

	if draw(c.pReorder, c.rng) {
		c.seq++
		heap.Push(&c.held, heldFrame{frame: frame, priority: c.rng.Float64(), seq: c.seq})
		return nil
	}

	out := c.drain()
	out = append(out, frame)
	c.stats.Delivered++
	return out
}

// Flush releases everything still held. A second Flush returns nothing.
func (c *Channel) Flush() []Frame {
	return c.drain()
}

// Buffered returns the number of frames currently held.
func (c *Channel) Buffered() int {
	return c.held.Len()
}

// Stats returns the running counters.
func (c *Channel) Stats() ChannelStats {
	return c.stats
}

func (c *Channel) drain() []Frame {
	if c.held.Len() == 0 {
		return nil
	}
	out := make([]Frame, 0, c.held.Len()+1)
	for c.held.Len() > 0 {
		hf := heap.Pop(&c.held).(heldFrame)
		out = append(out, hf.frame)
	}
	c.stats.Delivered += len(out)
	return out
}

type heldFrame struct {
	frame    Frame
	priority float64
	seq      int
}

// heldQueue is a min-heap on (priority, seq).
type heldQueue []heldFrame

func (q heldQueue) Len() int { return len(q) }

func (q heldQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}

func (q heldQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *heldQueue) Push(x any) { *q = append(*q, x.(heldFrame)) }

func (q *heldQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
