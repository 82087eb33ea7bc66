package render_data

// RenderPassBuilderOption is a function that configures a RenderPass during construction.
type RenderPassBuilderOption func(*renderPass)

// WithShaderTemplate sets the shader family the pass selects variants from.
//
// Parameters:
//   - name: the template name
//
// Returns:
//   - RenderPassBuilderOption: a function that applies the template option to a pass
func WithShaderTemplate(name string) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.template = name
	}
}

// WithRenderModes replaces the default render modes of the pass.
//
// Parameters:
//   - modes: the render modes
//
// Returns:
//   - RenderPassBuilderOption: a function that applies the modes option to a pass
func WithRenderModes(modes RenderModes) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.modes = modes
	}
}

// WithRenderOrder sets the render order bucket of the pass.
//
// Parameters:
//   - order: the render order
//
// Returns:
//   - RenderPassBuilderOption: a function that applies the order option to a pass
func WithRenderOrder(order RenderOrder) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.modes.SetRenderOrder(order)
	}
}

// WithUseLights sets whether the pass is lit.
//
// Parameters:
//   - enable: true to light the pass
//
// Returns:
//   - RenderPassBuilderOption: a function that applies the lighting option to a pass
func WithUseLights(enable bool) RenderPassBuilderOption {
	return func(p *renderPass) {
		p.modes.SetUseLights(enable)
	}
}
