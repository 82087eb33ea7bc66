// annotations.go defines the @oxy: annotations understood by the WGSL pre-processor.
// Annotations are single-line WGSL comments:
//
//	//@oxy:include <chunk>
//	//@oxy:group <group> <binding> <address_space> <var_name> <chunk|array<chunk>>
//
// include pastes a registered chunk's source; group emits a @group/@binding variable
// whose type is the chunk's declared struct type.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix marks an annotation inside a WGSL line comment.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation.
type AnnotationType string

const (
	AnnotationTypeInclude      AnnotationType = "include"
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// Address spaces accepted by group annotations, mapped to their WGSL var<> syntax.
var addressSpaces = map[string]string{
	"uniform":            "var<uniform>",
	"storage_read":       "var<storage, read>",
	"storage_read_write": "var<storage, read_write>",
}

// Annotation is one parsed annotation line.
type Annotation struct {
	Type AnnotationType

	// Chunk is the included chunk, or the chunk naming a group variable's type.
	Chunk string
	// Array wraps a group variable's type in a runtime-sized array.
	Array bool

	AddressSpace string
	VarName      string
	Group        int
	Binding      int

	// Line is 1-based.
	Line int
}

// parseAnnotation parses one source line. Lines without the prefix return nil and no
// error.
//
// Parameters:
//   - line: the raw WGSL line
//   - lineNum: the 1-based line number for errors
//
// Returns:
//   - *Annotation: the annotation, nil for ordinary lines
//   - error: a malformed annotation
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy:include takes exactly one chunk", lineNum)
		}
		return &Annotation{Type: AnnotationTypeInclude, Chunk: args[1], Line: lineNum}, nil

	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy:group takes group, binding, address space, name and type", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid group %q: %v", lineNum, args[1], err)
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid binding %q: %v", lineNum, args[2], err)
		}
		if _, ok := addressSpaces[args[3]]; !ok {
			spaces := make([]string, 0, len(addressSpaces))
			for s := range addressSpaces {
				spaces = append(spaces, s)
			}
			slices.Sort(spaces)
			return nil, fmt.Errorf("line %d: unknown address space %q, want one of %v", lineNum, args[3], spaces)
		}
		a := &Annotation{
			Type:         AnnotationTypeBindingGroup,
			AddressSpace: args[3],
			VarName:      args[4],
			Chunk:        args[5],
			Group:        group,
			Binding:      binding,
			Line:         lineNum,
		}
		if inner, ok := strings.CutPrefix(a.Chunk, "array<"); ok {
			a.Chunk, a.Array = strings.TrimSuffix(inner, ">"), true
		}
		return a, nil

	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation %q", lineNum, args[0])
	}
}
