package cmd

import (
	"bytes"
	"context"
	"fmt"

	"github.com/urfave/cli"

	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
)

// SortScene runs frames of the synthetic scene through the main sorter on a null
// device and prints the merge tree and the frame statistics.
func SortScene(ctx *cli.Context) error {
	setupLogging(ctx)

	keys, err := sorter.ParseSortKeys(ctx.String("keys"))
	if err != nil {
		return err
	}

	templates := make([]string, ctx.Int("shaders"))
	shaders := shader.NewManager(nil)
	for i := range templates {
		templates[i] = fmt.Sprintf("Shader%d", i)
		if _, err := shaders.AddShader(shader.Signature(templates[i], false, "", false), shader.Source{}); err != nil {
			return err
		}
	}

	sc, err := buildDemoScene(demoOptions{
		objects:     ctx.Int("objects"),
		meshes:      ctx.Int("meshes"),
		templates:   templates,
		transparent: ctx.Float64("transparent"),
		seed:        ctx.Int64("seed"),
		aspect:      16.0 / 9.0,
	})
	if err != nil {
		return err
	}
	defer sc.Close()

	dev := sorter.NewNullDevice()
	dev.Record = false
	s := sorter.NewMainSorter(dev, shaders,
		sorter.WithKeys(keys...),
		sorter.WithMaxMatricesPerBlock(ctx.Int("block-size")),
	)

	frames := max(ctx.Int("frames"), 1)
	stats := make([]sorter.Stats, 0, frames)
	var dump bytes.Buffer
	for i := 0; i < frames; i++ {
		sc.Prepare()
		rs := sorter.NewRenderState(sc, sc.Camera(), render_data.RenderMaskLeft)
		if err := s.Cull(context.Background(), rs); err != nil {
			return err
		}
		s.Validate(rs)
		s.Sort(rs)
		if err := s.Render(rs); err != nil {
			return err
		}
		// the tree only lives until Clear
		if i == frames-1 && ctx.BoolT("dump") {
			if err := s.Dump(&dump); err != nil {
				return err
			}
		}
		stats = append(stats, s.Stats())
		s.Clear()
	}

	if dump.Len() > 0 {
		logger.Noticef("merge tree (%v)\n%s", keys, dump.String())
	}
	displayStats(fmt.Sprintf("sorted %d objects on a null device", sc.Count()), stats)
	return nil
}
