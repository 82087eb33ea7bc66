package cmd

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Carmen-Shannon/oxy-sg/common"
	"github.com/Carmen-Shannon/oxy-sg/engine/camera"
	"github.com/Carmen-Shannon/oxy-sg/engine/game_object"
	"github.com/Carmen-Shannon/oxy-sg/engine/light"
	"github.com/Carmen-Shannon/oxy-sg/engine/model"
	"github.com/Carmen-Shannon/oxy-sg/engine/render_data"
	"github.com/Carmen-Shannon/oxy-sg/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-sg/engine/scene"
)

const (
	// demoSpacing is the distance between neighbouring objects of the grid.
	demoSpacing = 3.0
	// demoMaxSide is the objects per side of the XZ grid before stacking upward.
	demoMaxSide = 40
)

// demoOptions describes the synthetic scene shared by the sort and render commands.
type demoOptions struct {
	objects     int
	meshes      int
	templates   []string
	transparent float64
	lights      bool
	seed        int64
	aspect      float32
	effects     []render_data.RenderPass
}

// buildDemoScene lays out a grid of cubes with a spread of meshes, shader templates
// and materials, seen by an orbiting camera.
func buildDemoScene(o demoOptions) (scene.Scene, error) {
	if o.objects <= 0 || o.meshes <= 0 || len(o.templates) == 0 {
		return nil, fmt.Errorf("need at least one object, mesh and shader; got %d/%d/%d", o.objects, o.meshes, len(o.templates))
	}
	rng := rand.New(rand.NewSource(o.seed))

	meshes := make([]model.Mesh, o.meshes)
	for i := range meshes {
		meshes[i] = model.NewCube(0.5+float32(i)*0.25, model.WithName(fmt.Sprintf("cube_%d", i)))
	}

	side := min(int(math.Ceil(math.Sqrt(float64(o.objects)))), demoMaxSide)
	half := float32(side-1) * demoSpacing / 2

	opaque := make([]material.Material, o.meshes)
	for i := range opaque {
		opaque[i] = material.NewMaterial(
			material.WithName(fmt.Sprintf("opaque_%d", i)),
			material.WithBaseColor([4]float32{rng.Float32(), rng.Float32(), rng.Float32(), 1}),
			material.WithRoughness(0.5),
		)
	}
	glass := material.NewMaterial(
		material.WithName("glass"),
		material.WithBaseColor([4]float32{0.6, 0.8, 1, 0.4}),
		material.WithTransparent(true),
	)

	objects := make([]game_object.GameObject, 0, o.objects)
	for i := 0; i < o.objects; i++ {
		x := float32(i%side)*demoSpacing - half
		z := float32((i/side)%side)*demoSpacing - half
		y := float32(i/(side*side)) * demoSpacing

		mat := opaque[rng.Intn(len(opaque))]
		if rng.Float64() < o.transparent {
			mat = glass
		}
		pass := render_data.NewRenderPass(mat,
			render_data.WithShaderTemplate(o.templates[rng.Intn(len(o.templates))]),
			render_data.WithUseLights(o.lights),
		)
		rd := render_data.NewRenderData(meshes[rng.Intn(len(meshes))],
			render_data.WithPass(pass),
			render_data.WithCastShadows(o.lights),
		)
		objects = append(objects, game_object.NewGameObject(
			game_object.WithName(fmt.Sprintf("object_%d", i)),
			game_object.WithPosition(x, y, z),
			game_object.WithRotation(0, rng.Float32()*math.Pi, 0),
			game_object.WithRenderData(rd),
			game_object.WithCollider(i%10 == 0),
		))
	}

	camOpts := []camera.CameraBuilderOption{
		camera.WithFov(float32(60.0 * math.Pi / 180.0)),
		camera.WithAspect(o.aspect),
		camera.WithNear(0.1),
		camera.WithFar(1000),
		camera.WithBackgroundColor(common.Color{0.05, 0.05, 0.08, 1}),
		camera.WithController(camera.NewCameraController(
			camera.WithRadius(half*2+10),
			camera.WithTarget(0, 0, 0),
			camera.WithElevation(0.6),
			camera.WithAzimuth(0.3),
			camera.WithRadiusLimits(1, 2000),
		)),
	}
	for _, fx := range o.effects {
		camOpts = append(camOpts, camera.WithPostEffect(fx))
	}

	sceneOpts := []scene.SceneBuilderOption{
		scene.WithCamera(camera.NewCamera(camOpts...)),
		scene.WithObjects(objects...),
	}
	if o.lights {
		sceneOpts = append(sceneOpts, scene.WithLights(
			light.NewLight(light.LightTypeDirectional,
				light.WithDirection(-0.3, -1, -0.2),
				light.WithColor(1.0, 0.95, 0.85),
				light.WithIntensity(3.0),
				light.WithCastsShadows(true),
				light.WithShadowExtent(half+demoSpacing),
				light.WithEnabled(true),
			),
		))
	}
	return scene.NewScene("demo", sceneOpts...), nil
}
