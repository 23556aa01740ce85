package scale

import (
	"fmt"
	"strings"

	"github.com/gogpu/marks/channel"
	"github.com/gogpu/marks/internal/wgsl"
)

// pipeline accumulates a scale function body. Each step rewrites the
// current expression and may append statements.
type pipeline struct {
	expr string
	body []string
}

type step func(*pipeline)

func castToF32(in channel.ScalarType) step {
	return func(p *pipeline) {
		if in != channel.F32 {
			p.expr = "f32(" + p.expr + ")"
		}
	}
}

func clampToDomain(domainExpr string) step {
	return func(p *pipeline) {
		p.expr = "clampToDomain(" + p.expr + ", " + domainExpr + ")"
	}
}

func roundOutput() step {
	return func(p *pipeline) {
		p.expr = "roundAwayFromZero(" + p.expr + ")"
	}
}

func apply(f func(valueExpr string) string) step {
	return func(p *pipeline) {
		p.expr = f(p.expr)
	}
}

func block(resultExpr string, lines ...string) step {
	return func(p *pipeline) {
		for _, l := range lines {
			l = strings.ReplaceAll(l, "$v", p.expr)
			p.body = append(p.body, "    "+l)
		}
		p.expr = resultExpr
	}
}

func (pl *Plan) header(returnType string) string {
	fn := pl.Function
	if fn == "" {
		fn = pl.Name
	}
	return fmt.Sprintf("fn %s%s(i: u32) -> %s", wgsl.ScaledFunctionPrefix, fn, returnType)
}

func (pl *Plan) run(rawExpr string, steps []step) string {
	p := &pipeline{expr: rawExpr}
	for _, s := range steps {
		s(p)
	}
	var b strings.Builder
	b.WriteString(pl.header(pl.ReturnType()))
	b.WriteString(" {\n")
	for _, l := range p.body {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if pl.UseRangeTexture {
		fmt.Fprintf(&b, "    let unitValue = clamp(%s, 0.0, 1.0);\n", p.expr)
		fmt.Fprintf(&b, "    let rgb = getInterpolatedColor(%s%s, %s%s, unitValue);\n",
			wgsl.RangeTexturePrefix, pl.Name, wgsl.RangeSamplerPrefix, pl.Name)
		b.WriteString("    return vec4<f32>(rgb, 1.0);\n")
	} else {
		fmt.Fprintf(&b, "    return %s;\n", p.expr)
	}
	b.WriteString("}\n")
	return b.String()
}

func (pl *Plan) domainVec2() string {
	return "readPacked2(params." + wgsl.DomainPrefix + pl.Name + ")"
}

func (pl *Plan) domainVec3() string {
	return "readPacked3(params." + wgsl.DomainPrefix + pl.Name + ")"
}

func (pl *Plan) rangeVec2() string {
	return "readPacked2(params." + wgsl.RangePrefix + pl.Name + ")"
}

func (pl *Plan) param(prefix string) string {
	return "params." + prefix + pl.Name
}

func (pl *Plan) bandArgs() string {
	return strings.Join([]string{
		pl.param(wgsl.PaddingInnerPrefix),
		pl.param(wgsl.PaddingOuterPrefix),
		pl.param(wgsl.AlignPrefix),
		pl.param(wgsl.BandPrefix),
	}, ", ")
}

func toU32(rawExpr string, in channel.ScalarType) string {
	if in == channel.U32 {
		return rawExpr
	}
	return "u32(f32(" + rawExpr + "))"
}

// swizzle selects the used components of a vec4 uniform array element.
func swizzle(comps int) string {
	switch comps {
	case 1:
		return ".x"
	case 2:
		return ".xy"
	case 3:
		return ".xyz"
	}
	return ""
}

// Emit returns the getScaled_<Function> function. rawExpr reads the raw value
// of instance i. lookupFn names the domain map lookup function and is
// ignored by scales without a domain map.
func (pl *Plan) Emit(rawExpr, lookupFn string) (string, error) {
	switch pl.Def.Type {
	case channel.ScaleIdentity:
		return fmt.Sprintf("%s { return %s; }\n", pl.header(pl.identityType()), rawExpr), nil
	case channel.ScaleLinear:
		if pl.Piecewise {
			return pl.emitPiecewise(rawExpr), nil
		}
		return pl.emitContinuous(rawExpr, func(v string) string {
			return fmt.Sprintf("scaleLinear(%s, %s, %s)", v, pl.domainVec2(), pl.rangeVec2())
		}), nil
	case channel.ScaleLog:
		return pl.emitContinuous(rawExpr, func(v string) string {
			return fmt.Sprintf("scaleLog(%s, %s, %s, %s)", v, pl.domainVec2(), pl.rangeVec2(), pl.param(wgsl.BasePrefix))
		}), nil
	case channel.ScalePow, channel.ScaleSqrt:
		return pl.emitContinuous(rawExpr, func(v string) string {
			return fmt.Sprintf("scalePow(%s, %s, %s, %s)", v, pl.domainVec2(), pl.rangeVec2(), pl.param(wgsl.ExponentPrefix))
		}), nil
	case channel.ScaleSymlog:
		return pl.emitContinuous(rawExpr, func(v string) string {
			return fmt.Sprintf("scaleSymlog(%s, %s, %s, %s)", v, pl.domainVec2(), pl.rangeVec2(), pl.param(wgsl.ConstantPrefix))
		}), nil
	case channel.ScaleBand:
		if lookupFn == "" {
			return "", fmt.Errorf("band scale on %q requires a domain map", pl.Name)
		}
		return pl.emitBand(rawExpr, lookupFn), nil
	case channel.ScaleIndex:
		return pl.emitIndex(rawExpr), nil
	case channel.ScaleOrdinal:
		if lookupFn == "" {
			return "", fmt.Errorf("ordinal scale on %q requires a domain map", pl.Name)
		}
		return pl.emitOrdinal(rawExpr, lookupFn), nil
	case channel.ScaleThreshold:
		return pl.emitThreshold(rawExpr), nil
	case channel.ScaleQuantize:
		if pl.RangeLength < 1 {
			return "", fmt.Errorf("quantize scale on %q must define at least one range entry", pl.Name)
		}
		return pl.emitQuantize(rawExpr), nil
	}
	return "", fmt.Errorf("unsupported scale type %q on %q", pl.Def.Type, pl.Name)
}

func (pl *Plan) identityType() string {
	if pl.OutputComponents == 1 {
		return pl.OutputType.String()
	}
	return wgsl.TypeName(pl.InputType, pl.OutputComponents)
}

func (pl *Plan) emitContinuous(rawExpr string, f func(string) string) string {
	steps := []step{castToF32(pl.InputType)}
	if pl.Scale.Clamp {
		steps = append(steps, clampToDomain(pl.domainVec2()))
	}
	steps = append(steps, apply(f))
	if pl.Scale.Round && !pl.UseRangeTexture {
		steps = append(steps, roundOutput())
	}
	return pl.run(rawExpr, steps)
}

func (pl *Plan) emitPiecewise(rawExpr string) string {
	n := pl.DomainLength
	domain := "params." + wgsl.DomainPrefix + pl.Name
	rng := "params." + wgsl.RangePrefix + pl.Name
	rangeType, acc := "f32", ".x"
	if !pl.UseRangeTexture && pl.OutputComponents > 1 {
		rangeType, acc = pl.ReturnType(), swizzle(pl.OutputComponents)
	}
	steps := []step{castToF32(pl.InputType)}
	if pl.Scale.Clamp {
		steps = append(steps, clampToDomain(fmt.Sprintf("vec2<f32>(%s[0].x, %s[%du - 1u].x)", domain, domain, n)))
	}
	steps = append(steps, block("unit",
		fmt.Sprintf("let domainLen: u32 = %du;", n),
		"let value = $v;",
		"var slot: u32 = 0u;",
		"for (var k: u32 = 1u; k + 1u < domainLen; k = k + 1u) {",
		fmt.Sprintf("    if (value >= %s[k].x) {", domain),
		"        slot = k;",
		"    }",
		"}",
		fmt.Sprintf("let d0 = %s[slot].x;", domain),
		fmt.Sprintf("let d1 = %s[slot + 1u].x;", domain),
		"let denom = d1 - d0;",
		"let t = select(0.0, (value - d0) / denom, denom != 0.0);",
		fmt.Sprintf("let r0: %s = %s[slot]%s;", rangeType, rng, acc),
		fmt.Sprintf("let r1: %s = %s[slot + 1u]%s;", rangeType, rng, acc),
		"let unit = mix(r0, r1, t);",
	))
	if pl.Scale.Round && !pl.UseRangeTexture && pl.OutputComponents == 1 {
		steps = append(steps, roundOutput())
	}
	return pl.run(rawExpr, steps)
}

func (pl *Plan) emitThreshold(rawExpr string) string {
	domain := "params." + wgsl.DomainPrefix + pl.Name
	rng := "params." + wgsl.RangePrefix + pl.Name
	steps := []step{
		castToF32(pl.InputType),
		block("picked",
			"let value = $v;",
			fmt.Sprintf("let domainLen: u32 = %du;", pl.DomainLength),
			"var slot: u32 = 0u;",
			"for (var k: u32 = 0u; k < domainLen; k = k + 1u) {",
			fmt.Sprintf("    if (value >= %s[k].x) {", domain),
			"        slot = k + 1u;",
			"    }",
			"}",
			fmt.Sprintf("let picked: %s = %s[slot]%s;", pl.ReturnType(), rng, swizzle(pl.OutputComponents)),
		),
	}
	return pl.run(rawExpr, steps)
}

// emitQuantize clamps the unit position within the domain and picks one of
// RangeLength equal buckets.
func (pl *Plan) emitQuantize(rawExpr string) string {
	domain := "params." + wgsl.DomainPrefix + pl.Name
	rng := "params." + wgsl.RangePrefix + pl.Name
	steps := []step{
		castToF32(pl.InputType),
		block("picked",
			"let value = $v;",
			fmt.Sprintf("let d0 = %s[0].x;", domain),
			fmt.Sprintf("let d1 = %s[1].x;", domain),
			"let denom = d1 - d0;",
			"let unit = clamp(select(0.0, (value - d0) / denom, denom != 0.0), 0.0, 1.0);",
			fmt.Sprintf("let rangeLen: u32 = %du;", pl.RangeLength),
			"let slot = min(rangeLen - 1u, u32(floor(unit * f32(rangeLen))));",
			fmt.Sprintf("let picked: %s = %s[slot]%s;", pl.ReturnType(), rng, swizzle(pl.OutputComponents)),
		),
	}
	return pl.run(rawExpr, steps)
}

func (pl *Plan) emitBand(rawExpr, lookupFn string) string {
	call := func(v string) string {
		return fmt.Sprintf("scaleBand(%s, %s, %s, %s)", v, pl.domainVec2(), pl.rangeVec2(), pl.bandArgs())
	}
	var b strings.Builder
	b.WriteString(pl.header("f32"))
	b.WriteString(" {\n")
	fmt.Fprintf(&b, "    let raw = %s;\n", toU32(rawExpr, pl.InputType))
	fmt.Fprintf(&b, "    let mapCount = u32(params.%s%s);\n", wgsl.DomainMapCountPrefix, pl.Name)
	b.WriteString("    if (mapCount == 0u) {\n")
	fmt.Fprintf(&b, "        return %s;\n", call("raw"))
	b.WriteString("    }\n")
	fmt.Fprintf(&b, "    let mapped = %s(raw);\n", lookupFn)
	fmt.Fprintf(&b, "    if (mapped == HASH_NOT_FOUND) { return %s.x; }\n", pl.rangeVec2())
	fmt.Fprintf(&b, "    return %s;\n", call("mapped"))
	b.WriteString("}\n")
	return b.String()
}

func (pl *Plan) emitIndex(rawExpr string) string {
	value, fn := toU32(rawExpr, pl.InputType), "scaleBandHp"
	if pl.InputComponents == 2 {
		value, fn = rawExpr, "scaleBandHpU"
	}
	return fmt.Sprintf("%s {\n    let v = %s;\n    return %s(v, %s, %s, %s);\n}\n",
		pl.header("f32"), value, fn, pl.domainVec3(), pl.rangeVec2(), pl.bandArgs())
}

func (pl *Plan) emitOrdinal(rawExpr, lookupFn string) string {
	zero := pl.Zero()
	rangeName := wgsl.OrdinalRangePrefix + pl.Name
	countExpr := fmt.Sprintf("u32(params.%s%s)", wgsl.RangeCountPrefix, pl.Name)
	var b strings.Builder
	b.WriteString(pl.header(pl.ReturnType()))
	b.WriteString(" {\n")
	fmt.Fprintf(&b, "    let raw = %s;\n", toU32(rawExpr, pl.InputType))
	fmt.Fprintf(&b, "    let mapCount = u32(params.%s%s);\n", wgsl.DomainMapCountPrefix, pl.Name)
	b.WriteString("    if (mapCount == 0u) {\n")
	fmt.Fprintf(&b, "        let count = %s;\n", countExpr)
	fmt.Fprintf(&b, "        if (count == 0u) { return %s; }\n", zero)
	b.WriteString("        let slot = min(raw, count - 1u);\n")
	fmt.Fprintf(&b, "        return %s[slot]%s;\n", rangeName, pl.ordinalSwizzle())
	b.WriteString("    }\n")
	fmt.Fprintf(&b, "    let idx = %s(raw);\n", lookupFn)
	fmt.Fprintf(&b, "    if (idx == HASH_NOT_FOUND) { return %s; }\n", zero)
	fmt.Fprintf(&b, "    let count = %s;\n", countExpr)
	fmt.Fprintf(&b, "    if (count == 0u) { return %s; }\n", zero)
	b.WriteString("    let slot = min(idx, count - 1u);\n")
	fmt.Fprintf(&b, "    return %s[slot]%s;\n", rangeName, pl.ordinalSwizzle())
	b.WriteString("}\n")
	return b.String()
}

// ordinalSwizzle narrows vec4 range entries to the output width.
func (pl *Plan) ordinalSwizzle() string {
	if pl.OutputComponents == 1 || pl.OutputComponents == 4 {
		return ""
	}
	return swizzle(pl.OutputComponents)
}
