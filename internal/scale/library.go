package scale

// Library is the WGSL helper code shared by all scale functions. It is
// emitted once per shader.
const Library = `// Scale helpers. Formulas follow d3-scale.

fn getInterpolatedColor(s: texture_2d<f32>, samp: sampler, unitValue: f32) -> vec3<f32> {
    return textureSampleLevel(s, samp, vec2<f32>(unitValue, 0.0), 0.0).rgb;
}

fn clampToRange(value: f32, range: vec2<f32>) -> f32 {
    return clamp(value, min(range.x, range.y), max(range.x, range.y));
}

fn clampToDomain(value: f32, domain: vec2<f32>) -> f32 {
    return clamp(value, min(domain.x, domain.y), max(domain.x, domain.y));
}

fn roundAwayFromZero(value: f32) -> f32 {
    return sign(value) * floor(abs(value) + 0.5);
}

// Uniform arrays use 16-byte elements, so scalar stops are packed into vec4 slots.
fn readPacked2(values: array<vec4<f32>, 2>) -> vec2<f32> {
    return vec2<f32>(values[0].x, values[1].x);
}

fn readPacked3(values: array<vec4<f32>, 3>) -> vec3<f32> {
    return vec3<f32>(values[0].x, values[1].x, values[2].x);
}

fn scaleIdentity(value: f32) -> f32 {
    return value;
}

fn scaleLinear(value: f32, domain: vec2<f32>, range: vec2<f32>) -> f32 {
    let domainSpan = domain.y - domain.x;
    let rangeSpan = range.y - range.x;
    return (value - domain.x) / domainSpan * rangeSpan + range.x;
}

fn scaleLog(value: f32, domain: vec2<f32>, range: vec2<f32>, base: f32) -> f32 {
    return scaleLinear(log(value) / log(base), log(domain) / log(base), range);
}

fn symlog(value: f32, constant: f32) -> f32 {
    return sign(value) * log(abs(value / constant) + 1.0);
}

fn scaleSymlog(value: f32, domain: vec2<f32>, range: vec2<f32>, constant: f32) -> f32 {
    return scaleLinear(
        symlog(value, constant),
        vec2<f32>(symlog(domain.x, constant), symlog(domain.y, constant)),
        range
    );
}

fn scalePow(value: f32, domain: vec2<f32>, range: vec2<f32>, exponent: f32) -> f32 {
    return scaleLinear(
        pow(abs(value), exponent) * sign(value),
        pow(abs(domain), vec2<f32>(exponent)) * sign(domain),
        range
    );
}

fn scaleBand(value: u32, domainExtent: vec2<f32>, range: vec2<f32>,
        paddingInner: f32, paddingOuter: f32,
        align: f32, band: f32) -> f32 {
    var start = range.x;
    let stop = range.y;
    let rangeSpan = stop - start;
    let n = domainExtent.y - domainExtent.x;

    // A single band has no inner padding.
    let paddingInnerAdjusted = select(paddingInner, 0.0, i32(n) <= 1);

    let step = rangeSpan / max(1.0, n - paddingInnerAdjusted + paddingOuter * 2.0);
    start += (rangeSpan - step * (n - paddingInnerAdjusted)) * align;
    let bandwidth = step * (1.0 - paddingInnerAdjusted);

    return start + (f32(value) - domainExtent.x) * step + bandwidth * band;
}

const lowDivisor: f32 = 4096.0;
const lowMask: u32 = 4095u;

fn splitUint(value: u32) -> vec2<f32> {
    let valueLo = value & lowMask;
    let valueHi = value - valueLo;
    return vec2<f32>(f32(valueHi), f32(valueLo));
}

fn bandHp(split: vec2<f32>, domainExtent: vec3<f32>, range: vec2<f32>,
        paddingInner: f32, paddingOuter: f32,
        align: f32, band: f32) -> f32 {
    var start = range.x;
    let stop = range.y;
    let rangeSpan = stop - start;
    let n = domainExtent.z;

    let step = rangeSpan / max(1.0, n - paddingInner + paddingOuter * 2.0);
    start += (rangeSpan - step * (n - paddingInner)) * align;
    let bandwidth = step * (1.0 - paddingInner);

    // Hi and lo parts are offset separately so neither loses precision
    // before the final dot product.
    let hi = split.x - domainExtent.x;
    let lo = split.y - domainExtent.y;

    return dot(vec4<f32>(start, hi, lo, bandwidth), vec4<f32>(1.0, step, step, band));
}

fn scaleBandHp(value: u32, domainExtent: vec3<f32>, range: vec2<f32>,
        paddingInner: f32, paddingOuter: f32,
        align: f32, band: f32) -> f32 {
    return bandHp(splitUint(value), domainExtent, range, paddingInner, paddingOuter, align, band);
}

fn scaleBandHpU(value: vec2<u32>, domainExtent: vec3<f32>, range: vec2<f32>,
        paddingInner: f32, paddingOuter: f32,
        align: f32, band: f32) -> f32 {
    let split = vec2<f32>(f32(value.x) * lowDivisor, f32(value.y));
    return bandHp(split, domainExtent, range, paddingInner, paddingOuter, align, band);
}
`
