package filters

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/filters/gpucore"
	"github.com/gogpu/filters/internal/label"
)

// pass describes one compute dispatch.
type pass struct {
	// name labels the encoder and the pass.
	name string

	program gpucore.Program

	// groups holds the entries of each bind group, indexed by group.
	groups [][]gpucore.BindGroupEntry

	dispatch gpucore.Groups
}

// run records the pass into its own command buffer and submits it.
// Bind groups live only until the submission.
func (c *ComputeContext) run(p pass) error {
	pipe, err := c.pipeline(p.program)
	if err != nil {
		return err
	}
	dev := c.device

	groups := make([]gpucore.BindGroupID, 0, len(p.groups))
	defer func() {
		for _, id := range groups {
			dev.DestroyBindGroup(id)
		}
	}()
	for i, entries := range p.groups {
		id, err := dev.CreateBindGroup(&gpucore.BindGroupDesc{
			Label:    fmt.Sprintf("%s group %d", label.Title(p.name), i),
			Pipeline: pipe,
			Group:    uint32(i),
			Entries:  entries,
		})
		if err != nil {
			return fmt.Errorf("filters: %s: bind group %d: %w", p.name, i, err)
		}
		groups = append(groups, id)
	}

	enc, err := dev.CreateCommandEncoder(label.Pass(p.name))
	if err != nil {
		return fmt.Errorf("filters: %s: %w", p.name, err)
	}
	cp, err := enc.BeginComputePass(label.Pass(p.name))
	if err != nil {
		return fmt.Errorf("filters: %s: %w", p.name, err)
	}
	cp.SetPipeline(pipe)
	for i, id := range groups {
		cp.SetBindGroup(uint32(i), id)
	}
	cp.Dispatch(p.dispatch.X, p.dispatch.Y, 1)
	if err := cp.End(); err != nil {
		return fmt.Errorf("filters: %s: %w", p.name, err)
	}

	cb, err := enc.Finish()
	if err != nil {
		return fmt.Errorf("filters: %s: %w", p.name, err)
	}
	if err := dev.Submit(cb); err != nil {
		return fmt.Errorf("filters: %s: submit: %w", p.name, err)
	}

	Logger().Debug("filters: pass submitted", "pass", p.name,
		"program", p.program.String(), "groups_x", p.dispatch.X, "groups_y", p.dispatch.Y)
	return nil
}

// uniform creates a buffer holding data with the given usage.
func (c *ComputeContext) uniform(name string, data []byte, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	id, err := c.device.CreateBuffer(&gpucore.BufferDesc{
		Label: label.Buffer(name),
		Size:  uint64(len(data)),
		Usage: usage | gpucore.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("filters: create %s buffer: %w", name, err)
	}
	if err := c.device.WriteBuffer(id, 0, data); err != nil {
		c.device.DestroyBuffer(id)
		return gpucore.InvalidID, fmt.Errorf("filters: write %s buffer: %w", name, err)
	}
	return id, nil
}

// u32 encodes v as a little-endian uniform value.
func u32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(make([]byte, 0, 4), v)
}

// textureEntries binds input and output at the texture bindings every
// program shares.
func textureEntries(in, out gpucore.TextureID) []gpucore.BindGroupEntry {
	return []gpucore.BindGroupEntry{
		{Binding: gpucore.BindingInput, Texture: in},
		{Binding: gpucore.BindingOutput, Texture: out},
	}
}
