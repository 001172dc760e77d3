package wgpu

// compositeShaderWGSL implements every GPU pass this backend runs, as three
// entry points sharing one module (the same one-module/many-entry-points
// shape as the teacher's fine.wgsl: cs_fine / cs_fine_solid /
// cs_clear_coverage).
//
// The backend composites into a packed-RGBA8 storage buffer instead of a
// sampled render target (see package doc), so blending, gamma and tone
// mapping are all buffer passes rather than a render pass with a sampler.
const compositeShaderWGSL = `
struct ElementParams {
    inv_a: f32, inv_b: f32, inv_c: f32, inv_pad0: f32,
    inv_d: f32, inv_e: f32, inv_f: f32, inv_pad1: f32,
    src_x0: f32, src_y0: f32, src_x1: f32, src_y1: f32,
    clip_x0: i32, clip_y0: i32, clip_x1: i32, clip_y1: i32,
    src_width: u32, src_height: u32, out_width: u32, out_height: u32,
    opacity: f32, kind: u32, pad2: f32, pad3: f32,
    fill_color: vec4<f32>,
}

@group(0) @binding(0) var<storage, read_write> out_pixels: array<u32>;
@group(0) @binding(1) var<storage, read> src_pixels: array<u32>;
@group(0) @binding(2) var<uniform> params: ElementParams;

fn sample_nearest(u: f32, v: f32) -> vec4<f32> {
    let sx = clamp(i32(u * f32(params.src_width)), 0, i32(params.src_width) - 1);
    let sy = clamp(i32(v * f32(params.src_height)), 0, i32(params.src_height) - 1);
    let idx = u32(sy) * params.src_width + u32(sx);
    return unpack4x8unorm(src_pixels[idx]);
}

// composite_element blends one draw-list element's texture (or solid
// fill) over the output buffer within its clip rect, in source-over order
// (§4.6 step 3 draws back to front, one dispatch per element).
@compute @workgroup_size(8, 8)
fn composite_element(@builtin(global_invocation_id) gid: vec3<u32>) {
    let px = params.clip_x0 + i32(gid.x);
    let py = params.clip_y0 + i32(gid.y);
    if (px < params.clip_x0 || px >= params.clip_x1 || py < params.clip_y0 || py >= params.clip_y1) {
        return;
    }
    if (px < 0 || py < 0 || u32(px) >= params.out_width || u32(py) >= params.out_height) {
        return;
    }

    var src: vec4<f32>;
    if (params.kind == 1u) {
        src = params.fill_color;
    } else {
        // inv_* maps an output pixel to normalized source space (§6: the
        // renderer threads Element.World and SrcRect through as the
        // inverse of the world transform composed with the unit rect).
        let fx = f32(px) + 0.5;
        let fy = f32(py) + 0.5;
        let lu = params.inv_a * fx + params.inv_b * fy + params.inv_c;
        let lv = params.inv_d * fx + params.inv_e * fy + params.inv_f;
        if (lu < 0.0 || lu > 1.0 || lv < 0.0 || lv > 1.0) {
            return;
        }
        let u = mix(params.src_x0, params.src_x1, lu);
        let v = mix(params.src_y0, params.src_y1, lv);
        src = sample_nearest(u, v);
    }

    let a = src.a * params.opacity;
    if (a <= 0.0) {
        return;
    }
    let outIdx = u32(py) * params.out_width + u32(px);
    let dst = unpack4x8unorm(out_pixels[outIdx]);
    let blended = src.rgb * a + dst.rgb * (1.0 - a);
    let outA = a + dst.a * (1.0 - a);
    out_pixels[outIdx] = pack4x8unorm(vec4<f32>(blended, outA));
}

struct GammaParams {
    out_width: u32, out_height: u32, gamma: f32, pad: f32,
}
@group(0) @binding(0) var<storage, read_write> gamma_pixels: array<u32>;
@group(0) @binding(1) var<uniform> gamma_params: GammaParams;

// apply_gamma implements Renderer.ApplyGamma (§4.6 post-render hook): an
// in-place pow(rgb, 1/gamma) pass over the presented frame.
@compute @workgroup_size(8, 8)
fn apply_gamma(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= gamma_params.out_width || gid.y >= gamma_params.out_height) {
        return;
    }
    let idx = gid.y * gamma_params.out_width + gid.x;
    let c = unpack4x8unorm(gamma_pixels[idx]);
    let inv_gamma = 1.0 / max(gamma_params.gamma, 0.0001);
    let corrected = vec3<f32>(pow(c.r, inv_gamma), pow(c.g, inv_gamma), pow(c.b, inv_gamma));
    gamma_pixels[idx] = pack4x8unorm(vec4<f32>(corrected, c.a));
}

struct ToneMapParams {
    out_width: u32, out_height: u32, max_luminance: f32, exposure: f32,
}
@group(0) @binding(0) var<storage, read_write> tonemap_pixels: array<u32>;
@group(0) @binding(1) var<uniform> tonemap_params: ToneMapParams;

// apply_tonemap implements Renderer.ApplyToneMapping: a Reinhard operator
// scaled by exposure and clamped against max_luminance (§4.6 post-render
// hook, the HDR-to-SDR pass).
@compute @workgroup_size(8, 8)
fn apply_tonemap(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= tonemap_params.out_width || gid.y >= tonemap_params.out_height) {
        return;
    }
    let idx = gid.y * tonemap_params.out_width + gid.x;
    let c = unpack4x8unorm(tonemap_pixels[idx]);
    let exposed = c.rgb * tonemap_params.exposure;
    let mapped = exposed / (vec3<f32>(1.0, 1.0, 1.0) + exposed / max(tonemap_params.max_luminance, 0.0001));
    tonemap_pixels[idx] = pack4x8unorm(vec4<f32>(mapped, c.a));
}
`
