package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/urfave/cli"

	"github.com/Carmen-Shannon/oxy-sg/engine/camera"
	"github.com/Carmen-Shannon/oxy-sg/engine/matrix_calc"
)

// CalcExpression compiles a matrix expression file and evaluates it against a demo
// stereo camera. With --watch it re-evaluates whenever the file is written.
func CalcExpression(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing expression file argument")
	}
	path := ctx.Args().First()
	model := mgl32.Translate3D(float32(ctx.Float64("x")), float32(ctx.Float64("y")), float32(ctx.Float64("z")))

	run := func() {
		var buf bytes.Buffer
		if err := evaluateFile(&buf, path, model); err != nil {
			logger.Warningf("%s: %v", path, err)
			return
		}
		logger.Noticef("%s\n%s", path, buf.String())
	}
	run()

	if !ctx.Bool("watch") {
		return nil
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return watchFile(sigCtx, path, run)
}

// demoInputs fills the input table from a stereo camera orbiting the origin.
func demoInputs(model mgl32.Mat4) *matrix_calc.Inputs {
	cam := camera.NewCamera(
		camera.WithAspect(16.0/9.0),
		camera.WithStereo(0.064),
		camera.WithController(camera.NewCameraController(camera.WithRadius(5), camera.WithElevation(0.3))),
	)
	cam.Update()

	var in matrix_calc.Inputs
	in[matrix_calc.Projection] = cam.ProjectionMatrix()
	in[matrix_calc.LeftView] = cam.ViewMatrix(false)
	in[matrix_calc.RightView] = cam.ViewMatrix(true)
	in[matrix_calc.InverseLeftView] = in[matrix_calc.LeftView].Inv()
	in[matrix_calc.InverseRightView] = in[matrix_calc.RightView].Inv()
	in[matrix_calc.LeftViewProj] = cam.ViewProjectionMatrix(false)
	in[matrix_calc.RightViewProj] = cam.ViewProjectionMatrix(true)
	in[matrix_calc.Model] = model
	in[matrix_calc.LeftMVP] = in[matrix_calc.LeftViewProj].Mul4(model)
	in[matrix_calc.RightMVP] = in[matrix_calc.RightViewProj].Mul4(model)
	return &in
}

// evaluateFile compiles the program in path and writes every output it produces.
func evaluateFile(w io.Writer, path string, model mgl32.Mat4) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	mc, err := matrix_calc.NewMatrixCalc(string(src))
	if err != nil {
		return err
	}
	var out matrix_calc.Outputs
	if err := mc.Calculate(demoInputs(model), &out); err != nil {
		return err
	}
	for i := 0; i < mc.NumOutputs(); i++ {
		fmt.Fprintf(w, "output%d\n", i)
		formatMatrix(w, out[i])
	}
	return nil
}

// watchFile calls fn after every write to path until ctx ends. The directory is
// watched so editors that replace the file by rename keep triggering.
func watchFile(ctx context.Context, path string, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Infof("watching %s", abs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fn()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warningf("watch %s: %v", abs, err)
		}
	}
}
