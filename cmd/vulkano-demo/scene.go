package main

import (
	"math"
	"os"
	"unsafe"

	"github.com/andewx/vulkano"
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

type vertex struct {
	pos   [3]float32
	color [3]float32
}

var quadVertices = []vertex{
	{pos: [3]float32{-0.5, -0.5, 0}, color: [3]float32{1, 0, 0}},
	{pos: [3]float32{0.5, -0.5, 0}, color: [3]float32{0, 1, 0}},
	{pos: [3]float32{0.5, 0.5, 0}, color: [3]float32{0, 0, 1}},
	{pos: [3]float32{-0.5, 0.5, 0}, color: [3]float32{1, 1, 1}},
}

var quadIndices = []uint16{0, 1, 2, 2, 3, 0}

const vertexStride = uint32(unsafe.Sizeof(vertex{}))

// instanceOffsets lays n quads out on a square grid in front of the camera.
func instanceOffsets(n int) [][3]float32 {
	side := int(math.Ceil(math.Sqrt(float64(n))))
	out := make([][3]float32, n)
	for i := range out {
		x, y := i%side, i/side
		out[i] = [3]float32{
			(float32(x) - float32(side-1)/2) * 1.2,
			(float32(y) - float32(side-1)/2) * 1.2,
			-float32(side) * 1.5,
		}
	}
	return out
}

func sliceBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}

// pipelineConfig declares one pipeline drawing instanced quads with the
// projection in a vertex stage push constant.
func pipelineConfig(vert, frag []byte) vulkano.PipelineConfig {
	return vulkano.PipelineConfig{
		Layout:     0,
		RenderPass: 0,
		Stages: []vulkano.ShaderStage{
			{Stage: vk.ShaderStageVertexBit, Code: vert},
			{Stage: vk.ShaderStageFragmentBit, Code: frag},
		},
		VertexInput: &vk.PipelineVertexInputStateCreateInfo{
			PVertexBindingDescriptions: []vk.VertexInputBindingDescription{
				{Binding: 0, Stride: vertexStride, InputRate: vk.VertexInputRateVertex},
				{Binding: 1, Stride: uint32(unsafe.Sizeof([3]float32{})), InputRate: vk.VertexInputRateInstance},
			},
			PVertexAttributeDescriptions: []vk.VertexInputAttributeDescription{
				{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
				{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(vertex{}.color))},
				{Location: 2, Binding: 1, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			},
		},
	}
}

func pushConstantRanges() []vk.PushConstantRange {
	return []vk.PushConstantRange{{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		Offset:     0,
		Size:       uint32(unsafe.Sizeof(lin.Mat4x4{})),
	}}
}

func readShader(path string) ([]byte, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read shader")
	}
	return code, nil
}

// scene owns the device-local geometry of the instanced quad.
type scene struct {
	vertices  *vulkano.Buffer
	indices   *vulkano.Buffer
	instances *vulkano.Buffer
	count     uint32
}

func newScene(ctx *vulkano.Context, instances int) (*scene, error) {
	s := &scene{count: uint32(instances)}
	var err error
	upload := func(data []byte, usage vk.BufferUsageFlagBits) *vulkano.Buffer {
		if err != nil {
			return nil
		}
		var buf *vulkano.Buffer
		buf, err = ctx.CreateBuffer(vk.BufferCreateInfo{
			Size:  vk.DeviceSize(len(data)),
			Usage: vk.BufferUsageFlags(usage | vk.BufferUsageTransferDstBit),
		}, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
		if err != nil {
			return nil
		}
		if err = ctx.CopyToBuffer(buf, data); err != nil {
			buf.Destroy()
			return nil
		}
		return buf
	}
	s.vertices = upload(sliceBytes(quadVertices), vk.BufferUsageVertexBufferBit)
	s.indices = upload(sliceBytes(quadIndices), vk.BufferUsageIndexBufferBit)
	s.instances = upload(sliceBytes(instanceOffsets(instances)), vk.BufferUsageVertexBufferBit)
	if err != nil {
		s.destroy()
		return nil, err
	}
	return s, nil
}

func (s *scene) destroy() {
	s.vertices.Destroy()
	s.indices.Destroy()
	s.instances.Destroy()
}

// record draws the scene into an open frame.
func (s *scene) record(ctx *vulkano.Context, f *vulkano.Frame, p vulkano.Pipeline, angle float32) {
	cmd := f.CommandBuffer
	vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, p.Handle)
	vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{ctx.Viewport()})
	vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{ctx.Scissor()})

	var model, mvp lin.Mat4x4
	model.Identity()
	model.Rotate(&model, 0, 0, 1, angle)
	proj := vulkano.Perspective(float32(math.Pi/4), f.Extent, 0.1, 100)
	mvp.Mult(&proj, &model)
	push := vulkano.MatBytes(&mvp)
	vk.CmdPushConstants(cmd, p.Layout, vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		0, uint32(len(push)), unsafe.Pointer(&push[0]))

	vk.CmdBindVertexBuffers(cmd, 0, 2,
		[]vk.Buffer{s.vertices.Handle, s.instances.Handle},
		[]vk.DeviceSize{0, 0})
	vk.CmdBindIndexBuffer(cmd, s.indices.Handle, 0, vk.IndexTypeUint16)
	vk.CmdDrawIndexed(cmd, uint32(len(quadIndices)), s.count, 0, 0, 0)
}
