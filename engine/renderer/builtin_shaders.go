package renderer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
)

const (
	// TemplateColor is the built-in template shading a material's base color, with
	// a Lambert term from directional lights in lit variants.
	TemplateColor = "Color"

	// TemplateBlit is the built-in pass-through post effect sampling u_source.
	TemplateBlit = "Blit"

	// BoundingBoxSignature names the flat shader occlusion queries draw with.
	BoundingBoxSignature = "BoundingBox"

	// SourceTextureName is the sampler post effects read the previous target from.
	SourceTextureName = "u_source"

	// DrawOffsetUniform is the per-draw index of the first matrix inside the bound
	// transform block, raster backend only.
	DrawOffsetUniform = "u_draw_offset"
)

// lightCounts sums the per-class light counts of the descriptor ending a lit
// signature, e.g. "Color$DirectLight1$SpotLight2$DirectLight1" gives DirectLight 2
// and SpotLight 2.
func lightCounts(signature string) map[string]int {
	out := map[string]int{}
	parts := strings.Split(signature, "$")
	for _, p := range parts[1:] {
		i := strings.IndexFunc(p, func(r rune) bool { return r >= '0' && r <= '9' })
		if i <= 0 {
			continue
		}
		n, err := strconv.Atoi(p[i:])
		if err != nil {
			continue
		}
		out[p[:i]] += n
	}
	return out
}

// registerBuiltins adds the fixed-signature shaders of a backend to the registry in
// a stable order so their IDs do not depend on map iteration.
func registerBuiltins(shaders shader.Manager, sources map[string]shader.Source) error {
	sigs := make([]string, 0, len(sources))
	for sig := range sources {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)
	for _, sig := range sigs {
		if _, err := shaders.AddShader(sig, sources[sig]); err != nil {
			return fmt.Errorf("registering %s: %w", sig, err)
		}
	}
	return nil
}

// unknownTemplate is returned by the built-in generators for templates they do not know.
func unknownTemplate(template string) error {
	return fmt.Errorf("no built-in template %q", template)
}
