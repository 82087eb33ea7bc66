package sorter

// DefaultArenaBlockSize is the number of renderables per arena block.
const DefaultArenaBlockSize = 256

type arenaBlock struct {
	next     *arenaBlock
	numElems int
	elems    []Renderable
}

// Arena is a bump allocator of renderables made of a chain of fixed-capacity blocks.
// Clear rewinds every block without freeing it, so a steady-state frame allocates
// nothing. Pointers handed out stay valid until the next Clear.
type Arena struct {
	blockSize int
	head      *arenaBlock
	cur       *arenaBlock
	blocks    int
}

// NewArena creates an arena with one block.
//
// Parameters:
//   - blockSize: renderables per block, DefaultArenaBlockSize when < 1
//
// Returns:
//   - *Arena: the arena
func NewArena(blockSize int) *Arena {
	if blockSize < 1 {
		blockSize = DefaultArenaBlockSize
	}
	a := &Arena{blockSize: blockSize}
	a.head = a.newBlock()
	a.cur = a.head
	return a
}

func (a *Arena) newBlock() *arenaBlock {
	a.blocks++
	return &arenaBlock{elems: make([]Renderable, a.blockSize)}
}

// Alloc returns a zeroed renderable, chaining a new block when the current one is
// full.
//
// Returns:
//   - *Renderable: the renderable
func (a *Arena) Alloc() *Renderable {
	if a.cur.numElems == a.blockSize {
		if a.cur.next == nil {
			a.cur.next = a.newBlock()
		}
		a.cur = a.cur.next
	}
	r := &a.cur.elems[a.cur.numElems]
	a.cur.numElems++
	*r = Renderable{}
	return r
}

// Clear rewinds the arena to its first block. Memory is kept.
func (a *Arena) Clear() {
	for b := a.head; b != nil; b = b.next {
		b.numElems = 0
	}
	a.cur = a.head
}

// Len returns the number of renderables allocated since the last Clear.
func (a *Arena) Len() int {
	n := 0
	for b := a.head; b != nil; b = b.next {
		n += b.numElems
		if b == a.cur {
			break
		}
	}
	return n
}

// Blocks returns how many blocks the arena has chained.
func (a *Arena) Blocks() int {
	return a.blocks
}
