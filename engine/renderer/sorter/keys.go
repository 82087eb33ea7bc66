package sorter

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
)

// SortKey names one level of the merge tree.
type SortKey int

const (
	KeyRenderOrder SortKey = iota
	KeyDistance
	KeyShader
	KeyMesh
	KeyMaterial
	KeyMode
)

// MaxSortKeys bounds the key tuple.
const MaxSortKeys = 8

// DefaultSortKeys is the canonical key order: render order, distance for
// transparent buckets, shader, mesh, material.
var DefaultSortKeys = []SortKey{KeyRenderOrder, KeyDistance, KeyShader, KeyMesh, KeyMaterial}

var keyNames = map[SortKey]string{
	KeyRenderOrder: "RENDER_ORDER",
	KeyDistance:    "DISTANCE",
	KeyShader:      "SHADER",
	KeyMesh:        "MESH",
	KeyMaterial:    "MATERIAL",
	KeyMode:        "MODE",
}

func (k SortKey) String() string {
	if n, ok := keyNames[k]; ok {
		return n
	}
	return fmt.Sprintf("SortKey(%d)", int(k))
}

// ParseSortKeys parses a comma-separated key list such as "RENDER_ORDER,SHADER".
//
// Parameters:
//   - s: the key list, case-insensitive
//
// Returns:
//   - []SortKey: the keys
//   - error: on unknown names or more than MaxSortKeys keys
func ParseSortKeys(s string) ([]SortKey, error) {
	var keys []SortKey
	for _, name := range strings.Split(s, ",") {
		name = strings.ToUpper(strings.TrimSpace(name))
		found := false
		for k, n := range keyNames {
			if n == name {
				keys = append(keys, k)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("sorter: unknown sort key %q", name)
		}
	}
	if len(keys) > MaxSortKeys {
		return nil, fmt.Errorf("sorter: %d sort keys exceed the maximum of %d", len(keys), MaxSortKeys)
	}
	return keys, nil
}

// compareFunc orders two renderables on one key: negative if a goes first, zero if
// they share a bucket, positive otherwise.
type compareFunc func(a, b *Renderable) int

var compareFuncs = map[SortKey]compareFunc{
	KeyRenderOrder: compareRenderOrder,
	KeyDistance:    compareDistance,
	KeyShader:      compareShader,
	KeyMesh:        compareMesh,
	KeyMaterial:    compareMaterial,
	KeyMode:        compareMode,
}

func compareRenderOrder(a, b *Renderable) int {
	return cmp.Compare(a.Modes.RenderOrder(), b.Modes.RenderOrder())
}

// compareDistance puts the farthest renderable first.
func compareDistance(a, b *Renderable) int {
	return cmp.Compare(b.Distance, a.Distance)
}

func compareShader(a, b *Renderable) int {
	return cmp.Compare(a.ShaderID(), b.ShaderID())
}

func compareMesh(a, b *Renderable) int {
	var x, y uint64
	if a.Mesh != nil {
		x = a.Mesh.ID()
	}
	if b.Mesh != nil {
		y = b.Mesh.ID()
	}
	return cmp.Compare(x, y)
}

func compareMaterial(a, b *Renderable) int {
	var x, y uint64
	if a.Material != nil {
		x = a.Material.ID()
	}
	if b.Material != nil {
		y = b.Material.ID()
	}
	return cmp.Compare(x, y)
}

func compareMode(a, b *Renderable) int {
	return cmp.Compare(a.Modes.RenderFlags(), b.Modes.RenderFlags())
}

// applyRenderOrder forces painter's-order state on transparent renderables.
func applyRenderOrder(r *Renderable) {
	if r.Modes.RenderOrder() >= render_data.RenderOrderTransparent {
		r.Modes.SetAlphaBlend(true)
		r.Modes.SetDepthTest(false)
	}
}
