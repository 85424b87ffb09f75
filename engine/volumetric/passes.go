package volumetric

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Pipeline cache keys for the six volumetric passes, in dispatch order.
const (
	PipelineKeyClusterBuild     = "volumetric_cluster_build"
	PipelineKeyDensityInjection = "volumetric_density_injection"
	PipelineKeyLightInjection   = "volumetric_light_injection"
	PipelineKeyRayMarch         = "volumetric_ray_march"
	PipelineKeyTemporal         = "volumetric_temporal"
	PipelineKeyComposite        = "volumetric_composite"
)

// Binding indices shared between the layout declarations below, the resource
// set's buffer plumbing, and the WGSL sources. Binding 0 is always the frame
// constants uniform.
const (
	bindingConstants = 0

	clusterBindingLights    = 1
	clusterBindingOffsets   = 2
	clusterBindingCounts    = 3
	clusterBindingIndices   = 4
	clusterBindingAllocator = 5

	densityBindingVolumes = 1
	densityBindingField   = 2

	lightBindingLights   = 1
	lightBindingOffsets  = 2
	lightBindingCounts   = 3
	lightBindingIndices  = 4
	lightBindingDensity  = 5
	lightBindingField    = 6

	marchBindingDensity       = 1
	marchBindingLight         = 2
	marchBindingScattering    = 3
	marchBindingTransmittance = 4
	marchBindingSceneDepth    = 5

	temporalBindingScattering    = 1
	temporalBindingTransmittance = 2
	temporalBindingHistoryRead   = 3
	temporalBindingSampler       = 4
	temporalBindingHistoryWrite  = 5

	compositeBindingResult  = 1
	compositeBindingSampler = 2
)

func constantsEntry(visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    bindingConstants,
		Visibility: visibility,
		Buffer: wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeUniform,
			MinBindingSize: uint64((&GPUConstants{}).Size()),
		},
	}
}

func storageBufferEntry(binding uint32, readOnly bool, minSize uint64) wgpu.BindGroupLayoutEntry {
	t := wgpu.BufferBindingTypeStorage
	if readOnly {
		t = wgpu.BufferBindingTypeReadOnlyStorage
	}
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Buffer: wgpu.BufferBindingLayout{
			Type:           t,
			MinBindingSize: minSize,
		},
	}
}

func sampledTextureEntry(binding uint32, visibility wgpu.ShaderStage, dim wgpu.TextureViewDimension, sampleType wgpu.TextureSampleType) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
		Texture: wgpu.TextureBindingLayout{
			SampleType:    sampleType,
			ViewDimension: dim,
		},
	}
}

func storageTextureEntry(binding uint32, dim wgpu.TextureViewDimension, format wgpu.TextureFormat) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		StorageTexture: wgpu.StorageTextureBindingLayout{
			Access:        wgpu.StorageTextureAccessWriteOnly,
			Format:        format,
			ViewDimension: dim,
		},
	}
}

// ClusterBuildLayout declares group 0 of the cluster build pass: the light
// table in, the per-cell offset/count tables and the shared index table out.
// The allocator buffer holds the single atomic cursor into the index table.
func ClusterBuildLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Volumetric Cluster Build Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			constantsEntry(wgpu.ShaderStageCompute),
			storageBufferEntry(clusterBindingLights, true, uint64(MaxLights*(&GPULight{}).Size())),
			storageBufferEntry(clusterBindingOffsets, false, 4),
			storageBufferEntry(clusterBindingCounts, false, 4),
			storageBufferEntry(clusterBindingIndices, false, uint64(MaxClusterEntries*4)),
			storageBufferEntry(clusterBindingAllocator, false, clusterAllocatorSize),
		},
	}
}

// DensityInjectionLayout declares group 0 of the density injection pass: the
// density volume table in, the 3D density field out.
func DensityInjectionLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Volumetric Density Injection Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			constantsEntry(wgpu.ShaderStageCompute),
			storageBufferEntry(densityBindingVolumes, true, uint64(MaxDensityVolumes*(&GPUDensityVolume{}).Size())),
			storageTextureEntry(densityBindingField, wgpu.TextureViewDimension3D, wgpu.TextureFormatR32Float),
		},
	}
}

// LightInjectionLayout declares group 0 of the light injection pass: the light
// and cluster tables in, the density field sampled, the 3D light field out.
func LightInjectionLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Volumetric Light Injection Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			constantsEntry(wgpu.ShaderStageCompute),
			storageBufferEntry(lightBindingLights, true, uint64(MaxLights*(&GPULight{}).Size())),
			storageBufferEntry(lightBindingOffsets, true, 4),
			storageBufferEntry(lightBindingCounts, true, 4),
			storageBufferEntry(lightBindingIndices, true, uint64(MaxClusterEntries*4)),
			sampledTextureEntry(lightBindingDensity, wgpu.ShaderStageCompute, wgpu.TextureViewDimension3D, wgpu.TextureSampleTypeUnfilterableFloat),
			storageTextureEntry(lightBindingField, wgpu.TextureViewDimension3D, wgpu.TextureFormatRGBA16Float),
		},
	}
}

// RayMarchLayout declares group 0 of the ray march pass: both 3D fields and
// the scene depth in, the half-resolution scattering and transmittance images
// out. The depth binding clamps each ray at the first opaque surface.
func RayMarchLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Volumetric Ray March Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			constantsEntry(wgpu.ShaderStageCompute),
			sampledTextureEntry(marchBindingDensity, wgpu.ShaderStageCompute, wgpu.TextureViewDimension3D, wgpu.TextureSampleTypeUnfilterableFloat),
			sampledTextureEntry(marchBindingLight, wgpu.ShaderStageCompute, wgpu.TextureViewDimension3D, wgpu.TextureSampleTypeUnfilterableFloat),
			storageTextureEntry(marchBindingScattering, wgpu.TextureViewDimension2D, wgpu.TextureFormatRGBA16Float),
			storageTextureEntry(marchBindingTransmittance, wgpu.TextureViewDimension2D, wgpu.TextureFormatR32Float),
			sampledTextureEntry(marchBindingSceneDepth, wgpu.ShaderStageCompute, wgpu.TextureViewDimension2D, wgpu.TextureSampleTypeDepth),
		},
	}
}

// TemporalLayout declares group 0 of the temporal reprojection pass: the
// current frame's scattering and transmittance in, the previous history
// texture sampled bilinearly, the new history texture out.
func TemporalLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Volumetric Temporal Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			constantsEntry(wgpu.ShaderStageCompute),
			sampledTextureEntry(temporalBindingScattering, wgpu.ShaderStageCompute, wgpu.TextureViewDimension2D, wgpu.TextureSampleTypeUnfilterableFloat),
			sampledTextureEntry(temporalBindingTransmittance, wgpu.ShaderStageCompute, wgpu.TextureViewDimension2D, wgpu.TextureSampleTypeUnfilterableFloat),
			sampledTextureEntry(temporalBindingHistoryRead, wgpu.ShaderStageCompute, wgpu.TextureViewDimension2D, wgpu.TextureSampleTypeFloat),
			{
				Binding:    temporalBindingSampler,
				Visibility: wgpu.ShaderStageCompute,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
			storageTextureEntry(temporalBindingHistoryWrite, wgpu.TextureViewDimension2D, wgpu.TextureFormatRGBA16Float),
		},
	}
}

// CompositeLayout declares group 0 of the composite pass: the resolved history
// texture sampled at full resolution over the scene.
func CompositeLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Volumetric Composite Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			constantsEntry(wgpu.ShaderStageVertex | wgpu.ShaderStageFragment),
			sampledTextureEntry(compositeBindingResult, wgpu.ShaderStageFragment, wgpu.TextureViewDimension2D, wgpu.TextureSampleTypeFloat),
			{
				Binding:    compositeBindingSampler,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	}
}
