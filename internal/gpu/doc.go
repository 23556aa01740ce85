// Package gpu wraps the HAL objects a mark program owns: grow-only
// storage and uniform buffers, color ramp textures, the render pipeline
// and the group 1 bind group.
//
// Buffers report when a write reallocated them. The caller then rebuilds
// the bind group with BuildBindGroup, which resolves each shader resource
// by name and fails with ErrMissingResource when a handle is absent.
package gpu
