package sorter

// SorterBuilderOption configures a sorter during construction.
type SorterBuilderOption func(*sorter)

// WithKeys sets the sort key tuple. Keys beyond MaxSortKeys are ignored.
//
// Parameters:
//   - keys: the keys, primary first
//
// Returns:
//   - SorterBuilderOption: the option
func WithKeys(keys ...SortKey) SorterBuilderOption {
	return func(s *sorter) {
		s.keys = append([]SortKey(nil), keys...)
	}
}

// WithMaxMatricesPerBlock sets the transform block capacity.
//
// Parameters:
//   - n: matrices per block
//
// Returns:
//   - SorterBuilderOption: the option
func WithMaxMatricesPerBlock(n int) SorterBuilderOption {
	return func(s *sorter) {
		if n > 0 {
			s.maxMatrices = n
		}
	}
}

// WithMultiview renders both eyes in one pass with two matrices per draw.
//
// Parameters:
//   - enabled: true for multiview
//
// Returns:
//   - SorterBuilderOption: the option
func WithMultiview(enabled bool) SorterBuilderOption {
	return func(s *sorter) {
		s.multiview = enabled
	}
}

// WithArenaBlockSize sets the number of renderables per arena block.
//
// Parameters:
//   - n: renderables per block
//
// Returns:
//   - SorterBuilderOption: the option
func WithArenaBlockSize(n int) SorterBuilderOption {
	return func(s *sorter) {
		s.arenaBlockSize = n
	}
}

// WithOcclusionCuller admits objects through an occlusion test after frustum culling.
//
// Parameters:
//   - o: the occlusion culler
//
// Returns:
//   - SorterBuilderOption: the option
func WithOcclusionCuller(o OcclusionCuller) SorterBuilderOption {
	return func(s *sorter) {
		s.occlusion = o
	}
}
