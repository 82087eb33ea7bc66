package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialParams is the uniform block every material shader reads from
// binding 1 in the low-level backend and as loose uniforms in the raster backend.
// Size: 32 bytes (std140 aligned).
type GPUMaterialParams struct {
	BaseColor [4]float32 // offset 0: RGBA base color (16 bytes)
	Metallic  float32    // offset 16
	Roughness float32    // offset 20
	_         [2]float32 // offset 24: pad to 32
}

// ParamsOf builds the GPU parameter struct for a material.
//
// Parameters:
//   - m: the material
//
// Returns:
//   - GPUMaterialParams: the packed parameters
func ParamsOf(m Material) GPUMaterialParams {
	return GPUMaterialParams{
		BaseColor: m.BaseColor(),
		Metallic:  m.Metallic(),
		Roughness: m.Roughness(),
	}
}

// Size returns the size of the GPUMaterialParams struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, 32)
	for i, c := range g.BaseColor {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(c))
	}
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Roughness))
	return buf
}
