package sorter

import (
	"fmt"
	"io"
	"strings"
)

func (s *sorter) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "sort keys %v, %d items\n", s.keys, s.count); err != nil {
		return err
	}
	return s.dumpList(w, s.root.nextLevel, 0)
}

func (s *sorter) dumpList(w io.Writer, head *Renderable, depth int) error {
	indent := strings.Repeat("  ", depth)
	for n := head; n != nil; n = n.nextSibling {
		if !n.listHead {
			if _, err := fmt.Fprintf(w, "%s- #%d %v\n", indent, n.seq, n); err != nil {
				return err
			}
			continue
		}
		key := s.keys[n.level]
		if _, err := fmt.Fprintf(w, "%s%s=%s\n", indent, key, keyValue(key, n)); err != nil {
			return err
		}
		if err := s.dumpList(w, n.nextLevel, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func keyValue(k SortKey, r *Renderable) string {
	switch k {
	case KeyRenderOrder:
		return fmt.Sprint(r.Modes.RenderOrder())
	case KeyDistance:
		return fmt.Sprintf("%.2f", r.Distance)
	case KeyShader:
		if r.Shader != nil {
			return fmt.Sprintf("%d %s", r.Shader.ID(), r.Shader.Signature())
		}
		return "-"
	case KeyMesh:
		if r.Mesh != nil {
			return fmt.Sprintf("%d %s", r.Mesh.ID(), r.Mesh.Name())
		}
		return "-"
	case KeyMaterial:
		if r.Material != nil {
			return fmt.Sprintf("%d %s", r.Material.ID(), r.Material.Name())
		}
		return "-"
	case KeyMode:
		return fmt.Sprintf("%#x", r.Modes.RenderFlags())
	}
	return "?"
}
