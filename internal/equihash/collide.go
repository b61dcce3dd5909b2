package equihash

// Collisions is a chained hash table, scoped to one bucket, that finds
// every unordered pair of same-class slots in O(N+pairs) with no sort:
// head[class] names the most recently inserted slot of that class, and
// next[slot] chains back to the slot inserted before it. Reused across
// buckets within a thread to avoid per-bucket allocation.
type Collisions struct {
	head []int32
	next []int32
}

// NewCollisions allocates chain tables sized for p: head is indexed by the
// OTHER bits of a digit (1<<OtherBits classes), next is indexed by slot id.
func NewCollisions(p *Params) *Collisions {
	return &Collisions{
		head: make([]int32, 1<<p.OtherBits),
		next: make([]int32, p.NumBucketSlots),
	}
}

// Reset clears every chain head before processing a new bucket.
func (c *Collisions) Reset() {
	for i := range c.head {
		c.head[i] = -1
	}
}

// Chain returns the head slot of class's chain, or -1 if empty.
func (c *Collisions) Chain(class int) int32 { return c.head[class] }

// Next returns the slot chained before slot (in insertion order), or -1.
func (c *Collisions) Next(slot int32) int32 { return c.next[slot] }

// Prepend links slot at the head of class's chain.
func (c *Collisions) Prepend(class int, slot int) {
	c.next[slot] = c.head[class]
	c.head[class] = int32(slot)
}
