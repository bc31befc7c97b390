package compute

import (
	"fmt"
	"sync"
)

// GridBackend emulates a GPU: buffers are device-owned, and every kernel is
// launched over a 2-D grid of square tiles, one goroutine per chunk of
// tiles, with each cell computed independently of every other cell.
type GridBackend struct {
	cfg LaunchConfig

	mu     sync.Mutex
	nextID uint64
	live   map[uint64]*Buffer
	closed bool
}

func NewGridBackend(cfg LaunchConfig) *GridBackend {
	return &GridBackend{
		cfg:  cfg.normalized(),
		live: make(map[uint64]*Buffer),
	}
}

func (g *GridBackend) Name() string {
	return fmt.Sprintf("grid (%dx%d threads/block, %d workers)",
		g.cfg.ThreadsPerBlock, g.cfg.ThreadsPerBlock, g.cfg.Workers)
}

func (g *GridBackend) Available() bool { return true }

func (g *GridBackend) Config() LaunchConfig { return g.cfg }

func (g *GridBackend) Alloc(rows, cols int) (*Buffer, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrShape, rows, cols)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, ErrClosed
	}

	g.nextID++
	b := &Buffer{
		id:    g.nextID,
		owner: g,
		rows:  rows,
		cols:  cols,
		data:  make([]float64, rows*cols),
	}
	g.live[b.id] = b
	return b, nil
}

func (g *GridBackend) Upload(rows, cols int, data []float64) (*Buffer, error) {
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrShape, len(data), rows, cols)
	}
	b, err := g.Alloc(rows, cols)
	if err != nil {
		return nil, err
	}
	copy(b.data, data)
	return b, nil
}

// Download copies the buffer back to host memory. It is synchronous and
// may be called any number of times.
func (g *GridBackend) Download(b *Buffer) ([]float64, error) {
	if err := g.check(b); err != nil {
		return nil, err
	}
	out := make([]float64, len(b.data))
	copy(out, b.data)
	return out, nil
}

// Free returns the buffer to the device. Freeing twice, or freeing a nil
// buffer, is a no-op.
func (g *GridBackend) Free(b *Buffer) {
	if b == nil || b.owner != g {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if b.freed {
		return
	}
	delete(g.live, b.id)
	b.freed = true
	b.data = nil
}

func (g *GridBackend) LiveBuffers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live)
}

func (g *GridBackend) Cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, b := range g.live {
		b.freed = true
		b.data = nil
		delete(g.live, id)
	}
	g.closed = true
}

func (g *GridBackend) Binary(op Op, dst, a, b *Buffer) error {
	if err := g.check(dst, a, b); err != nil {
		return err
	}
	if dst == a || dst == b {
		return ErrAliasedBuffer
	}
	if !sameShape(a, b) || !sameShape(dst, a) {
		return fmt.Errorf("%w: %s %dx%d with %dx%d into %dx%d",
			ErrShape, op, a.rows, a.cols, b.rows, b.cols, dst.rows, dst.cols)
	}

	cols := a.cols
	g.launch(a.rows, a.cols, func(row, col int) {
		i := row*cols + col
		dst.data[i] = op.Apply(a.data[i], b.data[i])
	})
	return nil
}

func (g *GridBackend) BinaryScalar(op Op, dst, a *Buffer, s float64, swapped bool) error {
	if err := g.check(dst, a); err != nil {
		return err
	}
	if dst == a {
		return ErrAliasedBuffer
	}
	if !sameShape(dst, a) {
		return fmt.Errorf("%w: %s %dx%d into %dx%d", ErrShape, op, a.rows, a.cols, dst.rows, dst.cols)
	}

	cols := a.cols
	if swapped {
		g.launch(a.rows, a.cols, func(row, col int) {
			i := row*cols + col
			dst.data[i] = op.Apply(s, a.data[i])
		})
		return nil
	}
	g.launch(a.rows, a.cols, func(row, col int) {
		i := row*cols + col
		dst.data[i] = op.Apply(a.data[i], s)
	})
	return nil
}

func (g *GridBackend) Unary(op UnaryOp, dst, a *Buffer) error {
	if err := g.check(dst, a); err != nil {
		return err
	}
	if dst == a {
		return ErrAliasedBuffer
	}
	if !sameShape(dst, a) {
		return fmt.Errorf("%w: %s %dx%d into %dx%d", ErrShape, op, a.rows, a.cols, dst.rows, dst.cols)
	}

	cols := a.cols
	g.launch(a.rows, a.cols, func(row, col int) {
		i := row*cols + col
		dst.data[i] = op.Apply(a.data[i])
	})
	return nil
}

func (g *GridBackend) MatMul(dst, a, b *Buffer) error {
	if err := g.check(dst, a, b); err != nil {
		return err
	}
	if dst == a || dst == b {
		return ErrAliasedBuffer
	}
	if a.cols != b.rows || dst.rows != a.rows || dst.cols != b.cols {
		return fmt.Errorf("%w: matmul %dx%d by %dx%d into %dx%d",
			ErrShape, a.rows, a.cols, b.rows, b.cols, dst.rows, dst.cols)
	}

	inner, cols := a.cols, b.cols
	g.launch(dst.rows, dst.cols, func(row, col int) {
		sum := 0.0
		for k := 0; k < inner; k++ {
			sum += a.data[row*inner+k] * b.data[k*cols+col]
		}
		dst.data[row*cols+col] = sum
	})
	return nil
}

func (g *GridBackend) Transpose(dst, a *Buffer) error {
	if err := g.check(dst, a); err != nil {
		return err
	}
	if dst == a {
		return ErrAliasedBuffer
	}
	if dst.rows != a.cols || dst.cols != a.rows {
		return fmt.Errorf("%w: transpose %dx%d into %dx%d", ErrShape, a.rows, a.cols, dst.rows, dst.cols)
	}

	rows, cols := a.rows, a.cols
	g.launch(rows, cols, func(row, col int) {
		dst.data[col*rows+row] = a.data[row*cols+col]
	})
	return nil
}

func (g *GridBackend) Identity(dst *Buffer) error {
	if err := g.check(dst); err != nil {
		return err
	}
	cols := dst.cols
	g.launch(dst.rows, dst.cols, func(row, col int) {
		v := 0.0
		if row == col {
			v = 1
		}
		dst.data[row*cols+col] = v
	})
	return nil
}

func (g *GridBackend) Fill(dst *Buffer, v float64) error {
	if err := g.check(dst); err != nil {
		return err
	}
	cols := dst.cols
	g.launch(dst.rows, dst.cols, func(row, col int) {
		dst.data[row*cols+col] = v
	})
	return nil
}

// SumColumns reduces every row to a single value: dst is rows x 1. Each
// row is summed by one thread in column order.
func (g *GridBackend) SumColumns(dst, a *Buffer) error {
	if err := g.check(dst, a); err != nil {
		return err
	}
	if dst == a {
		return ErrAliasedBuffer
	}
	if dst.rows != a.rows || dst.cols != 1 {
		return fmt.Errorf("%w: sum columns of %dx%d into %dx%d", ErrShape, a.rows, a.cols, dst.rows, dst.cols)
	}

	cols := a.cols
	g.launch(a.rows, 1, func(row, _ int) {
		sum := 0.0
		for _, v := range a.data[row*cols : (row+1)*cols] {
			sum += v
		}
		dst.data[row] = sum
	})
	return nil
}

// SumRows reduces every column to a single value: dst is 1 x cols.
func (g *GridBackend) SumRows(dst, a *Buffer) error {
	if err := g.check(dst, a); err != nil {
		return err
	}
	if dst == a {
		return ErrAliasedBuffer
	}
	if dst.rows != 1 || dst.cols != a.cols {
		return fmt.Errorf("%w: sum rows of %dx%d into %dx%d", ErrShape, a.rows, a.cols, dst.rows, dst.cols)
	}

	rows, cols := a.rows, a.cols
	g.launch(1, cols, func(_, col int) {
		sum := 0.0
		for row := 0; row < rows; row++ {
			sum += a.data[row*cols+col]
		}
		dst.data[col] = sum
	})
	return nil
}

// Sum reduces the whole buffer. Row partials are computed in parallel and
// folded in row order, so the result does not depend on scheduling.
func (g *GridBackend) Sum(a *Buffer) (float64, error) {
	if err := g.check(a); err != nil {
		return 0, err
	}

	partial := make([]float64, a.rows)
	cols := a.cols
	g.launch(a.rows, 1, func(row, _ int) {
		sum := 0.0
		for _, v := range a.data[row*cols : (row+1)*cols] {
			sum += v
		}
		partial[row] = sum
	})

	total := 0.0
	for _, v := range partial {
		total += v
	}
	return total, nil
}

func (g *GridBackend) check(bufs ...*Buffer) error {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return ErrClosed
	}

	for _, b := range bufs {
		if b == nil {
			return fmt.Errorf("%w: nil buffer", ErrShape)
		}
		if b.owner != g {
			return ErrForeign
		}
		if b.freed {
			return ErrFreed
		}
	}
	return nil
}

// launch runs kernel once per (row, col) cell. Cells are grouped into
// ThreadsPerBlock x ThreadsPerBlock tiles and the tiles are split into
// contiguous chunks, one per worker. It returns after every cell ran.
func (g *GridBackend) launch(rows, cols int, kernel func(row, col int)) {
	tpb := g.cfg.ThreadsPerBlock
	gridRows := (rows + tpb - 1) / tpb
	gridCols := (cols + tpb - 1) / tpb
	blocks := gridRows * gridCols
	if blocks == 0 {
		return
	}

	workers := g.cfg.Workers
	if workers > blocks {
		workers = blocks
	}

	if workers <= 1 {
		for b := 0; b < blocks; b++ {
			runBlock(b, gridCols, tpb, rows, cols, kernel)
		}
		return
	}

	chunkSize := (blocks + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > blocks {
			end = blocks
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for b := start; b < end; b++ {
				runBlock(b, gridCols, tpb, rows, cols, kernel)
			}
		}(start, end)
	}
	wg.Wait()
}

func runBlock(block, gridCols, tpb, rows, cols int, kernel func(row, col int)) {
	by, bx := block/gridCols, block%gridCols
	for ty := 0; ty < tpb; ty++ {
		row := by*tpb + ty
		if row >= rows {
			return
		}
		for tx := 0; tx < tpb; tx++ {
			col := bx*tpb + tx
			if col >= cols {
				break
			}
			kernel(row, col)
		}
	}
}
