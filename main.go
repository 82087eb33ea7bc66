package main

import (
	"os"
	"runtime"
	"time"

	"github.com/urfave/cli"

	"github.com/Carmen-Shannon/oxy-sg/cmd"
	"github.com/Carmen-Shannon/oxy-sg/engine/log"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer"
)

func init() {
	// glfw and GL calls must stay on the main thread
	runtime.LockOSThread()
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	sceneFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "objects, n",
			Value: 1000,
			Usage: "number of objects in the demo scene",
		},
		cli.IntFlag{
			Name:  "meshes",
			Value: 8,
			Usage: "number of distinct meshes",
		},
		cli.Float64Flag{
			Name:  "transparent",
			Value: 0.2,
			Usage: "fraction of objects with a transparent material",
		},
		cli.Int64Flag{
			Name:  "seed",
			Value: 1,
			Usage: "random seed of the scene layout",
		},
		cli.IntFlag{
			Name:  "block-size",
			Value: 60,
			Usage: "matrices per transform block",
		},
	}

	app := cli.NewApp()
	app.Name = "oxy-sg"
	app.Usage = "drive the scene-graph renderer core headlessly"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "sort",
			Usage: "sort a synthetic scene on a null device and print the merge tree",
			Description: `
Build a grid of objects spread over the given meshes, shaders and materials, run
it through the main sorter without a GPU, and print the statistics of every frame.
With --dump the merge tree of the last frame is printed as an outline.`,
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "shaders",
					Value: 4,
					Usage: "number of distinct shader templates",
				},
				cli.StringFlag{
					Name:  "keys, k",
					Value: "RENDER_ORDER,DISTANCE,SHADER,MESH,MATERIAL",
					Usage: "comma separated sort key tuple",
				},
				cli.IntFlag{
					Name:  "frames",
					Value: 1,
					Usage: "frames to sort",
				},
				cli.BoolTFlag{
					Name:  "dump",
					Usage: "print the merge tree of the last frame",
				},
			}, sceneFlags...),
			Action: cmd.SortScene,
		},
		{
			Name:      "calc",
			Usage:     "evaluate a matrix expression file against a demo stereo camera",
			ArgsUsage: "expression_file",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "watch, w",
					Usage: "re-evaluate whenever the file changes",
				},
				cli.Float64Flag{Name: "x", Usage: "model translation x"},
				cli.Float64Flag{Name: "y", Usage: "model translation y"},
				cli.Float64Flag{Name: "z", Usage: "model translation z"},
			},
			Action: cmd.CalcExpression,
		},
		{
			Name:  "render",
			Usage: "render the demo scene with a GPU backend",
			Description: `
Render frames of the demo scene through the gl or wgpu backend and print the
statistics of every frame. The gl backend renders into a hidden window's context
unless --show is given; the wgpu backend renders offscreen.`,
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "backend, b",
					Value: renderer.BackendTypeGL.String(),
					Usage: "gl or wgpu",
				},
				cli.IntFlag{
					Name:  "frames, f",
					Value: 10,
					Usage: "frames to render, 0 until interrupted",
				},
				cli.IntFlag{
					Name:  "effects, e",
					Value: 0,
					Usage: "number of pass-through post effects",
				},
				cli.StringFlag{
					Name:  "effect-shader",
					Usage: "annotated WGSL post effect appended after the pass-through effects (wgpu)",
				},
				cli.IntFlag{
					Name:  "width",
					Value: 1280,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 720,
					Usage: "frame height",
				},
				cli.IntFlag{
					Name:  "samples",
					Value: 1,
					Usage: "MSAA samples of the --out target",
				},
				cli.StringFlag{
					Name:  "keys, k",
					Usage: "comma separated sort key tuple",
				},
				cli.BoolTFlag{
					Name:  "lights",
					Usage: "light the scene with a shadow-casting directional light",
				},
				cli.BoolFlag{
					Name:  "stencil",
					Usage: "allocate stencil buffers",
				},
				cli.BoolFlag{
					Name:  "occlusion",
					Usage: "enable occlusion culling (gl)",
				},
				cli.DurationFlag{
					Name:  "fence-timeout",
					Value: renderer.DefaultFenceTimeout,
					Usage: "maximum wait for a render target's previous frame",
				},
				cli.BoolFlag{
					Name:  "show",
					Usage: "open a visible window; drag with the middle button to orbit",
				},
				cli.BoolFlag{
					Name:  "vsync",
					Usage: "wait for vertical sync when presenting",
				},
				cli.Float64Flag{
					Name:  "orbit",
					Usage: "camera orbit speed in radians per second",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "write the last frame to this PNG file",
				},
			}, sceneFlags...),
			Action: cmd.RenderScene,
		},
	}

	start := time.Now()
	err := app.Run(os.Args)
	logger := log.New("oxy-sg")
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	logger.Debugf("done in %v", time.Since(start))
}
