package shader

import (
	"fmt"
	"strings"
	"sync"
)

// Chunk is a reusable piece of WGSL: usually one or more struct declarations, with the
// struct type group annotations bind.
type Chunk struct {
	Source string
	Type   string
}

// PreProcessor expands @oxy: annotations in WGSL source against a registry of chunks.
// Chunks are registered by whoever owns the matching GPU layout, so the layout and its
// WGSL declaration live side by side.
type PreProcessor interface {
	// Register adds or replaces a chunk.
	//
	// Parameters:
	//   - name: the key annotations refer to
	//   - chunk: the WGSL source and bound type
	Register(name string, chunk Chunk)

	// Process replaces every annotation with its WGSL. Each chunk is included at most
	// once, so two includes of the same chunk do not redeclare its structs.
	//
	// Parameters:
	//   - source: WGSL with annotations
	//
	// Returns:
	//   - string: plain WGSL
	//   - []Annotation: the group annotations, in source order
	//   - error: a malformed annotation, an unknown chunk or a reused binding
	Process(source string) (string, []Annotation, error)
}

type preProcessor struct {
	mu     sync.RWMutex
	chunks map[string]Chunk
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor with an empty registry.
//
// Returns:
//   - PreProcessor: the pre-processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{chunks: make(map[string]Chunk)}
}

func (p *preProcessor) Register(name string, chunk Chunk) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chunks[name] = chunk
}

func (p *preProcessor) Process(source string) (string, []Annotation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	included := make(map[string]bool)
	bound := make(map[[2]int]int)
	var decls []Annotation

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", nil, err
		}
		if a == nil {
			out = append(out, line)
			continue
		}
		chunk, ok := p.chunks[a.Chunk]
		if !ok {
			return "", nil, fmt.Errorf("line %d: unknown chunk %q", a.Line, a.Chunk)
		}

		switch a.Type {
		case AnnotationTypeInclude:
			if !included[a.Chunk] {
				out = append(out, chunk.Source)
				included[a.Chunk] = true
			}
		case AnnotationTypeBindingGroup:
			if chunk.Type == "" {
				return "", nil, fmt.Errorf("line %d: chunk %q declares no bindable type", a.Line, a.Chunk)
			}
			slot := [2]int{a.Group, a.Binding}
			if prev, ok := bound[slot]; ok {
				return "", nil, fmt.Errorf("line %d: group %d binding %d already declared on line %d", a.Line, a.Group, a.Binding, prev)
			}
			bound[slot] = a.Line
			typeName := chunk.Type
			if a.Array {
				typeName = fmt.Sprintf("array<%s>", typeName)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				a.Group, a.Binding, addressSpaces[a.AddressSpace], a.VarName, typeName))
			decls = append(decls, *a)
		}
	}
	return strings.Join(out, "\n"), decls, nil
}
