package timeseries

// Cursor is the timestamp of the newest ingested point. Zero means nothing has been ingested yet and the
// next fetch asks for the full history.
type Cursor struct {
	value int64
}

func (c *Cursor) Value() int64 {
	return c.value
}

// Advance moves the cursor to candidate if candidate is newer. It never moves backwards.
// Returns true if the cursor moved.
func (c *Cursor) Advance(candidate int64) bool {
	if candidate <= c.value {
		return false
	}
	c.value = candidate
	return true
}

// Reset puts the cursor back to zero.
func (c *Cursor) Reset() {
	c.value = 0
}
