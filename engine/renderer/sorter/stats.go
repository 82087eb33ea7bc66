package sorter

import "strconv"

// Stats counts the work of one sorter frame.
type Stats struct {
	Items            int
	Culled           int
	OcclusionSkipped int
	ShaderBinds      int
	MaterialBinds    int
	MeshBinds        int
	StateChanges     int
	DrawCalls        int
	Triangles        int
	TransformBlocks  int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Items += o.Items
	s.Culled += o.Culled
	s.OcclusionSkipped += o.OcclusionSkipped
	s.ShaderBinds += o.ShaderBinds
	s.MaterialBinds += o.MaterialBinds
	s.MeshBinds += o.MeshBinds
	s.StateChanges += o.StateChanges
	s.DrawCalls += o.DrawCalls
	s.Triangles += o.Triangles
	s.TransformBlocks += o.TransformBlocks
}

// StatsHeader names the columns of Row.
var StatsHeader = []string{
	"items", "culled", "occluded", "shaders", "materials", "meshes", "states", "draws", "triangles", "blocks",
}

// Row formats the counters in StatsHeader order.
func (s Stats) Row() []string {
	vals := []int{
		s.Items, s.Culled, s.OcclusionSkipped, s.ShaderBinds, s.MaterialBinds,
		s.MeshBinds, s.StateChanges, s.DrawCalls, s.Triangles, s.TransformBlocks,
	}
	row := make([]string, len(vals))
	for i, v := range vals {
		row[i] = strconv.Itoa(v)
	}
	return row
}
