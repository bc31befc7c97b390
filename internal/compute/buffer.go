package compute

// Buffer is a row-major matrix resident on a device. Its contents are only
// reachable through the owning backend.
type Buffer struct {
	id    uint64
	owner *GridBackend
	rows  int
	cols  int
	data  []float64
	freed bool
}

func (b *Buffer) Dims() (r, c int) { return b.rows, b.cols }

func (b *Buffer) Len() int { return b.rows * b.cols }

// Freed reports whether the buffer has been returned to its backend.
func (b *Buffer) Freed() bool { return b.freed }

func sameShape(a, b *Buffer) bool {
	return a.rows == b.rows && a.cols == b.cols
}
