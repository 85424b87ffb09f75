package volumetric

import (
	_ "embed"

	"github.com/Carmen-Shannon/haze-go/engine/renderer"
	"github.com/Carmen-Shannon/haze-go/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/haze-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/cluster_build.wgsl
var clusterBuildSource string

//go:embed assets/density_injection.wgsl
var densityInjectionSource string

//go:embed assets/light_injection.wgsl
var lightInjectionSource string

//go:embed assets/ray_march.wgsl
var rayMarchSource string

//go:embed assets/temporal.wgsl
var temporalSource string

//go:embed assets/composite.wgsl
var compositeSource string

// RegisterPipelines builds the six volumetric pass pipelines and registers
// them with the renderer's pipeline cache. Safe to call once at startup;
// re-registration of an existing key fails in the renderer.
//
// Parameters:
//   - rend: the renderer to register against
//
// Returns:
//   - error: an error when any pipeline's GPU objects cannot be created
func RegisterPipelines(rend renderer.Renderer) error {
	clusterShader := shader.NewShader(
		PipelineKeyClusterBuild,
		shader.ShaderTypeCompute,
		clusterBuildSource,
		"main",
		shader.WithBindGroupLayout(0, ClusterBuildLayout()),
		shader.WithWorkgroupSize(4, 4, 4),
	)
	densityShader := shader.NewShader(
		PipelineKeyDensityInjection,
		shader.ShaderTypeCompute,
		densityInjectionSource,
		"main",
		shader.WithBindGroupLayout(0, DensityInjectionLayout()),
		shader.WithWorkgroupSize(4, 4, 4),
	)
	lightShader := shader.NewShader(
		PipelineKeyLightInjection,
		shader.ShaderTypeCompute,
		lightInjectionSource,
		"main",
		shader.WithBindGroupLayout(0, LightInjectionLayout()),
		shader.WithWorkgroupSize(4, 4, 4),
	)
	marchShader := shader.NewShader(
		PipelineKeyRayMarch,
		shader.ShaderTypeCompute,
		rayMarchSource,
		"main",
		shader.WithBindGroupLayout(0, RayMarchLayout()),
		shader.WithWorkgroupSize(8, 8, 1),
	)
	temporalShader := shader.NewShader(
		PipelineKeyTemporal,
		shader.ShaderTypeCompute,
		temporalSource,
		"main",
		shader.WithBindGroupLayout(0, TemporalLayout()),
		shader.WithWorkgroupSize(8, 8, 1),
	)
	compositeVertex := shader.NewShader(
		PipelineKeyComposite+"_vs",
		shader.ShaderTypeVertex,
		compositeSource,
		"vs_main",
	)
	compositeFragment := shader.NewShader(
		PipelineKeyComposite+"_fs",
		shader.ShaderTypeFragment,
		compositeSource,
		"fs_main",
		shader.WithBindGroupLayout(0, CompositeLayout()),
	)

	return rend.RegisterPipelines(
		pipeline.NewPipeline(PipelineKeyClusterBuild, pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(clusterShader)),
		pipeline.NewPipeline(PipelineKeyDensityInjection, pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(densityShader)),
		pipeline.NewPipeline(PipelineKeyLightInjection, pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(lightShader)),
		pipeline.NewPipeline(PipelineKeyRayMarch, pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(marchShader)),
		pipeline.NewPipeline(PipelineKeyTemporal, pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(temporalShader)),
		pipeline.NewPipeline(PipelineKeyComposite, pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(compositeVertex),
			pipeline.WithFragmentShader(compositeFragment),
			pipeline.WithDepthTestEnabled(false),
			pipeline.WithDepthWriteEnabled(false),
			pipeline.WithBlendEnabled(true),
			// out = scene * transmittance + scatter, with the scene already in
			// the color target. Destination alpha is left untouched.
			pipeline.WithBlendState(&wgpu.BlendState{
				Color: wgpu.BlendComponent{
					SrcFactor: wgpu.BlendFactorOne,
					DstFactor: wgpu.BlendFactorSrcAlpha,
					Operation: wgpu.BlendOperationAdd,
				},
				Alpha: wgpu.BlendComponent{
					SrcFactor: wgpu.BlendFactorZero,
					DstFactor: wgpu.BlendFactorOne,
					Operation: wgpu.BlendOperationAdd,
				},
			})),
	)
}
