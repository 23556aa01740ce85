// Command markc compiles a built-in mark into WGSL.
//
// The program is built on the noop HAL backend, so no GPU is required.
// Channels listed in -series are fed with generated per-instance data and
// channels listed in -dynamic become updatable uniforms; every other
// channel uses the mark's default value.
//
// Usage:
//
//	markc [options]
//
// Examples:
//
//	markc -mark point -series x,y           # Print WGSL
//	markc -mark rect -o rect.wgsl            # Write WGSL to a file
//	markc -mark rule -spirv rule.spv         # Also compile to SPIR-V
//	markc -mark point -v                     # Log resources
//	markc -mark link -series x,x2,y,y2       # Links need both endpoints
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/marks"
	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/mark"
)

var (
	markName = flag.String("mark", "point", "mark type: point, rect, rule or link")
	series   = flag.String("series", "x,y", "comma-separated channels fed with series data")
	dynamic  = flag.String("dynamic", "", "comma-separated channels backed by uniforms")
	count    = flag.Int("n", 100, "instance count for series data")
	output   = flag.String("o", "", "WGSL output file (default: stdout)")
	spirvOut = flag.String("spirv", "", "compile to SPIR-V and write it to this file")
	validate = flag.Bool("validate", true, "validate the generated WGSL with naga")
	verbose  = flag.Bool("v", false, "log pipeline and resource details to stderr")
	version  = flag.Bool("version", false, "print version")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("markc version %s\n", marks.Version)
		return
	}
	if *verbose {
		marks.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	contract, err := lookupMark(*markName)
	if err != nil {
		return err
	}
	channels, err := buildChannels(contract, splitList(*series), splitList(*dynamic), *count)
	if err != nil {
		return err
	}

	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	defer instance.Destroy()
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no adapters available")
	}
	opened, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	defer opened.Device.Destroy()

	r, err := marks.NewRenderer(opened.Device, opened.Queue, marks.WithViewport(800, 600, 1))
	if err != nil {
		return err
	}
	defer r.Destroy()

	p, err := marks.NewProgram(r, contract, marks.Config{Channels: channels},
		marks.WithValidation(*validate),
		marks.WithDebugResources(*verbose))
	if err != nil {
		return err
	}
	defer p.Destroy()
	p.DebugResources(contract.Name)

	code := p.ShaderCode()
	if *output != "" {
		if err := os.WriteFile(*output, []byte(code), 0644); err != nil {
			return fmt.Errorf("write %s: %w", *output, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s (%d bytes, %d resources)\n", *output, len(code), len(p.Resources()))
	} else if *spirvOut == "" {
		if _, err := os.Stdout.WriteString(code); err != nil {
			return err
		}
	}

	if *spirvOut != "" {
		spv, err := naga.CompileWithOptions(code, naga.CompileOptions{
			SPIRVVersion: naga.DefaultOptions().SPIRVVersion,
			Validate:     *validate,
		})
		if err != nil {
			return fmt.Errorf("compile %s: %w", contract.Name, err)
		}
		if err := os.WriteFile(*spirvOut, spv, 0644); err != nil {
			return fmt.Errorf("write %s: %w", *spirvOut, err)
		}
		fmt.Fprintf(os.Stderr, "Compiled %s to %s (%d bytes)\n", contract.Name, *spirvOut, len(spv))
	}
	return nil
}

func lookupMark(name string) (*mark.Contract, error) {
	switch name {
	case "point":
		return mark.Point(), nil
	case "rect":
		return mark.Rect(), nil
	case "rule":
		return mark.Rule(), nil
	case "link":
		return mark.Link(), nil
	}
	return nil, fmt.Errorf("unknown mark %q (want point, rect, rule or link)", name)
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// buildChannels generates ramp data for series channels and marks the
// dynamic ones. Values come from the contract defaults.
func buildChannels(c *mark.Contract, seriesNames, dynamicNames []string, n int) (map[string]channel.Config, error) {
	out := make(map[string]channel.Config)
	for _, name := range seriesNames {
		spec, ok := c.Channels.Specs[name]
		if !ok {
			return nil, fmt.Errorf("mark %q has no channel %q", c.Name, name)
		}
		out[name] = channel.Config{Data: rampData(spec, n)}
	}
	for _, name := range dynamicNames {
		if _, ok := out[name]; ok {
			return nil, fmt.Errorf("channel %q cannot be both series and dynamic", name)
		}
		def, ok := c.Channels.DefaultValues[name]
		if !ok {
			return nil, fmt.Errorf("channel %q has no default value to make dynamic", name)
		}
		out[name] = channel.Config{Value: def, Dynamic: true}
	}
	return out, nil
}

func rampData(spec channel.Spec, n int) any {
	comps := max(spec.Components, 1)
	switch spec.Type {
	case channel.U32:
		d := make([]uint32, n*comps)
		for i := range d {
			d[i] = uint32(i / comps)
		}
		return d
	case channel.I32:
		d := make([]int32, n*comps)
		for i := range d {
			d[i] = int32(i / comps)
		}
		return d
	}
	d := make([]float32, n*comps)
	for i := range d {
		d[i] = float32(i / comps)
	}
	return d
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: markc [options]\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  markc -mark point -series x,y    Print WGSL\n")
	fmt.Fprintf(os.Stderr, "  markc -mark rule -spirv rule.spv Compile to SPIR-V\n")
}
