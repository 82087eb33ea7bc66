package uniform_block

import (
	"fmt"
	"strconv"
	"strings"
)

// UniformType is the GLSL/WGSL type of a block member.
type UniformType int

const (
	TypeInt UniformType = iota
	TypeUint
	TypeFloat
	TypeVec2
	TypeVec3
	TypeVec4
	TypeMat4
)

type typeInfo struct {
	align int
	size  int
}

var typeInfos = map[string]struct {
	typ  UniformType
	info typeInfo
}{
	"int":   {TypeInt, typeInfo{4, 4}},
	"uint":  {TypeUint, typeInfo{4, 4}},
	"float": {TypeFloat, typeInfo{4, 4}},
	"vec2":  {TypeVec2, typeInfo{8, 8}},
	"vec3":  {TypeVec3, typeInfo{16, 12}},
	"vec4":  {TypeVec4, typeInfo{16, 16}},
	"mat4":  {TypeMat4, typeInfo{16, 64}},
}

// Entry is the std140 placement of one block member.
type Entry struct {
	Name   string
	Type   UniformType
	Offset int
	Count  int // array length, 1 for non-arrays
	Stride int // byte distance between array elements
}

// Layout is the parsed std140 layout of a uniform block descriptor.
type Layout struct {
	Entries []Entry
	Size    int
	index   map[string]int
}

// Lookup finds a member by name.
func (l *Layout) Lookup(name string) (Entry, bool) {
	i, ok := l.index[name]
	if !ok {
		return Entry{}, false
	}
	return l.Entries[i], true
}

// ParseLayout parses a descriptor of ';'-separated "type name" or "type name[N]"
// declarations and lays the members out with std140 rules.
//
// Parameters:
//   - descriptor: e.g. "uint u_right; mat4 u_matrices[60]"
//
// Returns:
//   - *Layout: the layout
//   - error: ErrBadDescriptor on syntax errors, unknown types or duplicate names
func ParseLayout(descriptor string) (*Layout, error) {
	l := &Layout{index: make(map[string]int)}
	offset := 0
	for _, decl := range strings.Split(descriptor, ";") {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		fields := strings.Fields(decl)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrBadDescriptor, decl)
		}
		ti, ok := typeInfos[fields[0]]
		if !ok {
			return nil, fmt.Errorf("%w: unknown type %q", ErrBadDescriptor, fields[0])
		}

		name, count := fields[1], 1
		if open := strings.IndexByte(name, '['); open >= 0 {
			if !strings.HasSuffix(name, "]") {
				return nil, fmt.Errorf("%w: %q", ErrBadDescriptor, decl)
			}
			n, err := strconv.Atoi(name[open+1 : len(name)-1])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: bad array length in %q", ErrBadDescriptor, decl)
			}
			name, count = name[:open], n
		}
		if _, dup := l.index[name]; dup {
			return nil, fmt.Errorf("%w: duplicate member %q", ErrBadDescriptor, name)
		}

		align, stride := ti.info.align, ti.info.size
		if count > 1 {
			// std140 rounds array element alignment and stride up to a vec4
			align = roundUp(align, 16)
			stride = roundUp(stride, 16)
		}
		offset = roundUp(offset, align)
		l.index[name] = len(l.Entries)
		l.Entries = append(l.Entries, Entry{
			Name:   name,
			Type:   ti.typ,
			Offset: offset,
			Count:  count,
			Stride: stride,
		})
		if count > 1 {
			offset += stride * count
		} else {
			offset += ti.info.size
		}
	}
	if len(l.Entries) == 0 {
		return nil, fmt.Errorf("%w: empty descriptor", ErrBadDescriptor)
	}
	l.Size = roundUp(offset, 16)
	return l, nil
}

func roundUp(v, align int) int {
	return (v + align - 1) / align * align
}
