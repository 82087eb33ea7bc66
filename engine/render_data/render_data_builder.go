package render_data

// RenderDataBuilderOption is a function that configures a RenderData during construction.
type RenderDataBuilderOption func(*renderData)

// WithPass appends a pass.
//
// Parameters:
//   - p: the pass
//
// Returns:
//   - RenderDataBuilderOption: a function that appends the pass to a render data
func WithPass(p RenderPass) RenderDataBuilderOption {
	return func(rd *renderData) {
		rd.passes = append(rd.passes, p)
	}
}

// WithRenderMask sets the eyes the data renders into.
//
// Parameters:
//   - mask: the render mask
//
// Returns:
//   - RenderDataBuilderOption: a function that applies the mask option to a render data
func WithRenderMask(mask RenderMask) RenderDataBuilderOption {
	return func(rd *renderData) {
		rd.renderMask = mask
	}
}

// WithCastShadows sets whether the data is drawn into shadow maps.
//
// Parameters:
//   - enable: true to cast shadows
//
// Returns:
//   - RenderDataBuilderOption: a function that applies the shadow option to a render data
func WithCastShadows(enable bool) RenderDataBuilderOption {
	return func(rd *renderData) {
		rd.castShadows = enable
	}
}
