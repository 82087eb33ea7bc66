package cmd

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/urfave/cli"

	"github.com/Carmen-Shannon/oxy-sg/engine"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/gl_context"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/sorter"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/texture"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/wgpu_executor"
	"github.com/Carmen-Shannon/oxy-sg/engine/window"
)

const (
	// Radians of camera rotation per pixel of middle-button drag.
	mouseSensitivity float32 = 0.005

	// customEffectTemplate is the template name user effect shaders register under.
	customEffectTemplate = "CustomEffect"
)

// RenderScene renders frames of the demo scene with the GL or WGPU backend and
// prints per-frame statistics. With --out the last frame is written as a PNG.
func RenderScene(ctx *cli.Context) error {
	setupLogging(ctx)

	width, height := ctx.Int("width"), ctx.Int("height")
	blockSize := ctx.Int("block-size")
	show := ctx.Bool("show")

	backendType, err := renderer.ParseBackendType(ctx.String("backend"))
	if err != nil {
		return err
	}
	api := window.ClientAPIGL
	if backendType == renderer.BackendTypeWGPU {
		api = window.ClientAPIWGPU
	}

	// GL always needs a window for its context; wgpu only to present.
	var win window.Window
	if api == window.ClientAPIGL || show {
		w, err := window.NewWindow(
			window.WithTitle("oxy-sg"),
			window.WithSize(width, height),
			window.WithClientAPI(api),
			window.WithHidden(!show),
			window.WithVSync(ctx.Bool("vsync")),
		)
		if err != nil {
			return err
		}
		defer w.Close()
		win = w
		width, height = win.Width(), win.Height()
	}

	opts := []renderer.RendererBuilderOption{
		renderer.WithSize(width, height),
		renderer.WithMaxMatricesPerBlock(blockSize),
		renderer.WithStencilBuffer(ctx.Bool("stencil")),
		renderer.WithOcclusionCulling(ctx.Bool("occlusion")),
		renderer.WithFenceTimeout(ctx.Duration("fence-timeout")),
	}
	if keys := ctx.String("keys"); keys != "" {
		parsed, err := sorter.ParseSortKeys(keys)
		if err != nil {
			return err
		}
		opts = append(opts, renderer.WithSortKeys(parsed...))
	}
	switch backendType {
	case renderer.BackendTypeGL:
		glc, err := gl_context.NewGLContext()
		if err != nil {
			return err
		}
		opts = append(opts, renderer.WithGLContext(glc))
	case renderer.BackendTypeWGPU:
		var execOpts []wgpu_executor.ExecutorBuilderOption
		if win != nil {
			execOpts = append(execOpts,
				wgpu_executor.WithSurfaceDescriptor(win.SurfaceDescriptor()),
				wgpu_executor.WithVSync(ctx.Bool("vsync")),
			)
		}
		exec, err := wgpu_executor.NewExecutor(execOpts...)
		if err != nil {
			return err
		}
		opts = append(opts, renderer.WithWGPUDevice(exec))
	}

	r, err := renderer.NewRenderer(backendType, opts...)
	if err != nil {
		return err
	}
	defer r.Release()

	effects, err := postEffects(ctx, r)
	if err != nil {
		return err
	}

	sc, err := buildDemoScene(demoOptions{
		objects:     ctx.Int("objects"),
		meshes:      ctx.Int("meshes"),
		templates:   []string{renderer.TemplateColor},
		transparent: ctx.Float64("transparent"),
		lights:      ctx.BoolT("lights"),
		seed:        ctx.Int64("seed"),
		aspect:      float32(width) / float32(height),
		effects:     effects,
	})
	if err != nil {
		return err
	}
	defer sc.Close()

	engineOpts := []engine.EngineBuilderOption{
		engine.WithRenderer(r),
		engine.WithScene(0, sc),
		engine.WithProfiling(ctx.GlobalBool("v") || ctx.GlobalBool("vv"), 0),
	}
	if win != nil {
		engineOpts = append(engineOpts, engine.WithWindow(win))
	}
	var rt texture.RenderTexture
	if ctx.String("out") != "" {
		rt = texture.NewRenderTexture(uint32(width), uint32(height),
			texture.WithRenderTextureName("output"),
			texture.WithSamples(ctx.Int("samples")),
			texture.WithStencil(ctx.Bool("stencil")),
		)
		engineOpts = append(engineOpts, engine.WithTarget(rt))
	}
	eng := engine.NewEngine(engineOpts...)

	if win != nil {
		cam := sc.Camera()
		win.SetDragCallback(func(dx, dy float32) {
			cam.Controller().Orbit(-dx*mouseSensitivity, dy*mouseSensitivity)
		})
		win.SetScrollCallback(func(delta float32) {
			ctrl := cam.Controller()
			ctrl.SetRadius(ctrl.Radius() * (1 - 0.1*delta))
		})
		win.SetKeyDownCallback(func(key uint32) {
			if glfw.Key(key) == glfw.KeyQ {
				eng.Quit()
			}
		})
	}

	orbit := float32(ctx.Float64("orbit"))
	frames := make([]sorter.Stats, 0, max(ctx.Int("frames"), 0))
	eng.SetRenderCallback(func(dt float32, stats sorter.Stats) {
		frames = append(frames, stats)
		if orbit != 0 {
			sc.Camera().Controller().Orbit(orbit*dt, 0)
		}
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runErr := eng.Run(runCtx, ctx.Int("frames"))
	if runErr != nil && runErr != context.Canceled {
		logger.Errorf("render: %v", runErr)
	}

	if len(frames) <= 32 {
		displayStats(fmt.Sprintf("%v backend, %d frames", backendType, len(frames)), frames)
	} else {
		logger.Noticef("%v backend, %d frames", backendType, len(frames))
		displayStats("last frame", frames[len(frames)-1:])
	}

	if rt != nil {
		if err := writePNG(r, rt, ctx.String("out")); err != nil {
			return err
		}
		logger.Noticef("wrote %s", ctx.String("out"))
	}
	if runErr == context.Canceled {
		return nil
	}
	return runErr
}

// postEffects builds the pass-through effects plus the optional user effect shader.
func postEffects(ctx *cli.Context, r renderer.Renderer) ([]render_data.RenderPass, error) {
	var out []render_data.RenderPass
	for i := 0; i < ctx.Int("effects"); i++ {
		out = append(out, render_data.NewRenderPass(
			material.NewMaterial(material.WithName(fmt.Sprintf("effect_%d", i))),
			render_data.WithShaderTemplate(renderer.TemplateBlit),
			render_data.WithUseLights(false),
		))
	}

	path := ctx.String("effect-shader")
	if path == "" {
		return out, nil
	}
	if r.BackendType() != renderer.BackendTypeWGPU {
		return nil, fmt.Errorf("--effect-shader takes annotated WGSL and needs the wgpu backend")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := renderer.WGSLSource(renderer.WGPUPreProcessor(ctx.Int("block-size")), string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if _, err := r.Shaders().AddShader(customEffectTemplate, s); err != nil {
		return nil, err
	}
	return append(out, render_data.NewRenderPass(
		material.NewMaterial(material.WithName("custom_effect")),
		render_data.WithShaderTemplate(customEffectTemplate),
		render_data.WithUseLights(false),
	)), nil
}

// writePNG reads back rt and writes it top row first. Backends return rows bottom
// first.
func writePNG(r renderer.Renderer, rt texture.RenderTexture, path string) error {
	pixels, err := r.ReadPixels(rt)
	if err != nil {
		return err
	}
	w32, h32 := rt.Size()
	w, h := int(w32), int(h32)
	if len(pixels) < w*h*4 {
		return fmt.Errorf("readback returned %d bytes for %dx%d", len(pixels), w, h)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := w * 4
	for y := 0; y < h; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+stride], pixels[(h-1-y)*stride:(h-y)*stride])
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
