package uniform_block

import "fmt"

// FlushFunc uploads a transform block that will receive no more matrices this frame.
type FlushFunc func(b *TransformBlock) error

// transformBlockPool is the implementation of the TransformBlockPool interface.
type transformBlockPool struct {
	maxMatrices int
	blocks      []*TransformBlock
	current     int
	right       bool
	renderMask  uint32
	flush       FlushFunc
}

// TransformBlockPool hands out matrix slots in transform blocks for one render target.
//
// Slots are handed out sequentially. When the current block cannot hold a request the
// block is flushed and the next block is used, allocating it on first need. Blocks are
// kept across frames; Reset rewinds every block without freeing it.
type TransformBlockPool interface {
	// Reset rewinds the pool for a new frame and records the header values written into
	// every block used this frame.
	//
	// Parameters:
	//   - right: true while rendering the right eye
	//   - renderMask: the camera render mask
	Reset(right bool, renderMask uint32)

	// Alloc reserves n consecutive matrix slots.
	//
	// Parameters:
	//   - n: the number of matrices, at most MaxMatrices
	//
	// Returns:
	//   - *TransformBlock: the block holding the slots
	//   - int: the first slot index inside the block
	//   - error: any flush error, or an error if n exceeds the block capacity
	Alloc(n int) (*TransformBlock, int, error)

	// FlushCurrent uploads the block currently being filled, if any slot was used.
	//
	// Returns:
	//   - error: any flush error
	FlushCurrent() error

	// Blocks returns every block allocated so far.
	//
	// Returns:
	//   - []*TransformBlock: the blocks
	Blocks() []*TransformBlock

	// InUse returns the number of blocks holding matrices this frame.
	//
	// Returns:
	//   - int: the block count
	InUse() int

	// MaxMatrices returns the capacity of each block.
	//
	// Returns:
	//   - int: the matrices per block
	MaxMatrices() int
}

var _ TransformBlockPool = &transformBlockPool{}

// NewTransformBlockPool creates an empty pool.
//
// Parameters:
//   - maxMatrices: the capacity of every block
//   - flush: called with each block that is full or finished
//
// Returns:
//   - TransformBlockPool: the pool
func NewTransformBlockPool(maxMatrices int, flush FlushFunc) TransformBlockPool {
	return &transformBlockPool{
		maxMatrices: maxMatrices,
		flush:       flush,
	}
}

func (p *transformBlockPool) Reset(right bool, renderMask uint32) {
	for _, b := range p.blocks {
		b.used = 0
	}
	p.current = 0
	p.right = right
	p.renderMask = renderMask
}

func (p *transformBlockPool) Alloc(n int) (*TransformBlock, int, error) {
	if n > p.maxMatrices {
		return nil, 0, fmt.Errorf("uniform_block: %d matrices exceed the block capacity %d", n, p.maxMatrices)
	}
	for {
		b, err := p.block(p.current)
		if err != nil {
			return nil, 0, err
		}
		if off, ok := b.alloc(n); ok {
			return b, off, nil
		}
		if p.flush != nil {
			if err := p.flush(b); err != nil {
				return nil, 0, err
			}
		}
		p.current++
	}
}

// block returns block i, allocating it when the pool has not grown that far yet.
// A block whose first slot is handed out this frame gets the frame header.
func (p *transformBlockPool) block(i int) (*TransformBlock, error) {
	if i == len(p.blocks) {
		b, err := NewTransformBlock(p.maxMatrices, i)
		if err != nil {
			return nil, err
		}
		p.blocks = append(p.blocks, b)
	}
	b := p.blocks[i]
	if b.used == 0 {
		b.SetHeader(p.right, p.renderMask)
	}
	return b, nil
}

func (p *transformBlockPool) FlushCurrent() error {
	if p.current >= len(p.blocks) || p.blocks[p.current].used == 0 || p.flush == nil {
		return nil
	}
	return p.flush(p.blocks[p.current])
}

func (p *transformBlockPool) Blocks() []*TransformBlock {
	return p.blocks
}

func (p *transformBlockPool) InUse() int {
	if len(p.blocks) == 0 || p.blocks[0].used == 0 {
		return 0
	}
	return p.current + 1
}

func (p *transformBlockPool) MaxMatrices() int {
	return p.maxMatrices
}
