package gl_context

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/Carmen-Shannon/oxy-sg/engine/renderer"
)

func ptr(px []byte) unsafe.Pointer {
	if len(px) == 0 {
		return nil
	}
	return gl.Ptr(px)
}

func setSampling(target uint32, filter int32) {
	gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
}

// depthFormat returns the internal format, format and type of a depth attachment.
func depthFormat(stencil bool) (int32, uint32, uint32) {
	if stencil {
		return gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL, gl.UNSIGNED_INT_24_8
	}
	return gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.UNSIGNED_INT
}

func depthAttachment(stencil bool) uint32 {
	if stencil {
		return gl.DEPTH_STENCIL_ATTACHMENT
	}
	return gl.DEPTH_ATTACHMENT
}

// attachTexture allocates a sampled texture and attaches it to the bound framebuffer.
// Layered specs allocate a 2D array and attach every layer.
func attachTexture(spec renderer.FramebufferSpec, attachment uint32, internal int32, format, xtype uint32) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	if spec.Layers > 1 {
		gl.BindTexture(gl.TEXTURE_2D_ARRAY, tex)
		setSampling(gl.TEXTURE_2D_ARRAY, gl.LINEAR)
		gl.TexImage3D(gl.TEXTURE_2D_ARRAY, 0, internal, spec.Width, spec.Height, spec.Layers, 0, format, xtype, nil)
		gl.FramebufferTexture(gl.FRAMEBUFFER, attachment, tex, 0)
		return tex
	}
	gl.BindTexture(gl.TEXTURE_2D, tex)
	setSampling(gl.TEXTURE_2D, gl.LINEAR)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, spec.Width, spec.Height, 0, format, xtype, nil)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, attachment, gl.TEXTURE_2D, tex, 0)
	return tex
}

func attachRenderbuffer(spec renderer.FramebufferSpec, attachment uint32, internal uint32) uint32 {
	var rb uint32
	gl.GenRenderbuffers(1, &rb)
	gl.BindRenderbuffer(gl.RENDERBUFFER, rb)
	gl.RenderbufferStorageMultisample(gl.RENDERBUFFER, spec.Samples, internal, spec.Width, spec.Height)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, attachment, gl.RENDERBUFFER, rb)
	return rb
}

func checkComplete(name string) error {
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%s framebuffer incomplete: 0x%04X", name, status)
	}
	return nil
}

// CreateFramebuffer builds an offscreen framebuffer. Multisampled specs render into
// renderbuffers and resolve into a framebuffer of sampled textures.
func (c *glContextImpl) CreateFramebuffer(spec renderer.FramebufferSpec) (renderer.Framebuffer, error) {
	var fb renderer.Framebuffer
	gl.GenFramebuffers(1, &fb.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.FBO)
	defer gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	depthInternal, depthFmt, depthType := depthFormat(spec.Stencil)
	sampled := fb.FBO
	if spec.Samples > 1 {
		var rbs []uint32
		if !spec.DepthOnly {
			rbs = append(rbs, attachRenderbuffer(spec, gl.COLOR_ATTACHMENT0, gl.RGBA8))
		}
		if spec.Depth || spec.DepthOnly {
			rbs = append(rbs, attachRenderbuffer(spec, depthAttachment(spec.Stencil), uint32(depthInternal)))
		}
		c.renderbuffers[fb.FBO] = rbs
		if err := checkComplete("multisample"); err != nil {
			c.DeleteFramebuffer(fb)
			return renderer.Framebuffer{}, err
		}

		gl.GenFramebuffers(1, &fb.ResolveFBO)
		gl.BindFramebuffer(gl.FRAMEBUFFER, fb.ResolveFBO)
		sampled = fb.ResolveFBO
	}

	if !spec.DepthOnly {
		fb.Color = attachTexture(spec, gl.COLOR_ATTACHMENT0, gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE)
	} else {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}
	if spec.Depth || spec.DepthOnly {
		fb.Depth = attachTexture(spec, depthAttachment(spec.Stencil), depthInternal, depthFmt, depthType)
	}
	if err := checkComplete(fmt.Sprintf("fbo %d", sampled)); err != nil {
		c.DeleteFramebuffer(fb)
		return renderer.Framebuffer{}, err
	}
	return fb, nil
}

func (c *glContextImpl) DeleteFramebuffer(fb renderer.Framebuffer) {
	for _, tex := range []uint32{fb.Color, fb.Depth} {
		if tex != 0 {
			gl.DeleteTextures(1, &tex)
		}
	}
	if rbs := c.renderbuffers[fb.FBO]; len(rbs) > 0 {
		gl.DeleteRenderbuffers(int32(len(rbs)), &rbs[0])
		delete(c.renderbuffers, fb.FBO)
	}
	for _, fbo := range []uint32{fb.FBO, fb.ResolveFBO} {
		if fbo != 0 {
			gl.DeleteFramebuffers(1, &fbo)
		}
	}
}
