package renderer

// sceneShader draws both lit triangle meshes and unlit helper lines. The vertex
// layout matches packVertices and the Draw struct matches drawUniforms.
const sceneShader = `
struct Draw {
	mvp: mat4x4<f32>,
	model: mat4x4<f32>,
	color: vec4<f32>,
	light_dir: vec4<f32>,
	light_color: vec4<f32>,
	flags: vec4<f32>,
};

@group(0) @binding(0) var<uniform> params: Draw;
@group(0) @binding(1) var base_map: texture_2d<f32>;
@group(0) @binding(2) var base_sampler: sampler;

struct VertexIn {
	@location(0) position: vec3<f32>,
	@location(1) normal: vec3<f32>,
	@location(2) uv: vec2<f32>,
	@location(3) color: vec3<f32>,
};

struct VertexOut {
	@builtin(position) clip: vec4<f32>,
	@location(0) normal: vec3<f32>,
	@location(1) uv: vec2<f32>,
	@location(2) color: vec3<f32>,
};

@vertex
fn vs_main(in: VertexIn) -> VertexOut {
	var out: VertexOut;
	out.clip = params.mvp * vec4<f32>(in.position, 1.0);
	out.normal = (params.model * vec4<f32>(in.normal, 0.0)).xyz;
	out.uv = in.uv;
	out.color = in.color;
	return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
	let texel = textureSample(base_map, base_sampler, in.uv);
	let base = params.color * texel * vec4<f32>(in.color, 1.0);
	if (params.flags.x > 0.5) {
		return base;
	}
	let n = normalize(in.normal);
	let diffuse = max(dot(n, -params.light_dir.xyz), 0.0);
	let lit = vec3<f32>(params.light_dir.w) + diffuse * params.light_color.rgb;
	return vec4<f32>(base.rgb * lit, base.a);
}
`
