// Package marks compiles data-driven marks into WebGPU shader programs.
//
// # Overview
//
// A mark type (see package mark) declares a channel contract and a WGSL
// body. A Program binds a channel configuration to that contract: each
// channel is fed from per-instance series data, a dynamic uniform or a
// static literal, optionally mapped through a scale and overridden by
// selection conditions. From this the program generates one WGSL module,
// a matching bind group layout and the GPU buffers behind it.
//
// # Quick Start
//
//	r, err := marks.NewRenderer(device, queue, marks.WithViewport(800, 600, 1))
//	if err != nil {
//	    return err
//	}
//	defer r.Destroy()
//
//	p, err := marks.NewProgram(r, mark.Point(), marks.Config{
//	    Channels: map[string]channel.Config{
//	        "x":    {Data: xs, Scale: &channel.Scale{Type: channel.ScaleLinear, Domain: []float64{0, 100}}},
//	        "y":    {Data: ys, Scale: &channel.Scale{Type: channel.ScaleLinear, Domain: []float64{0, 100}}},
//	        "size": {Value: channel.Scalar(64), Dynamic: true},
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer p.Destroy()
//
//	p.Draw(renderPass)
//
// # Updates
//
// Series data, dynamic values, scale domains and ranges, and selections
// can change after construction without recompiling the shader. Updates
// that only change buffer contents are written through the queue. Updates
// that reallocate a buffer rebuild the bind group before they return.
//
// # Binding Model
//
// Group 0 holds the renderer's Globals uniform (viewport size and pixel
// ratio). Group 1 holds the program's Params uniform at binding 0,
// followed by series buffers, ordinal ranges, domain maps, range textures
// with their samplers, mark extras and multi selection sets, in that
// order.
package marks

// Version is the current version of the library.
const Version = "0.1.0"
