package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrBufferDestroyed is returned when writing to a destroyed buffer.
var ErrBufferDestroyed = errors.New("gpu: buffer has been destroyed")

// minBufferSize keeps zero-length uploads bindable.
const minBufferSize = 16

// StorageBuffer is a grow-only storage buffer. Writes that fit reuse the
// existing allocation; larger writes replace it, which invalidates any
// bind group that references the old handle.
type StorageBuffer struct {
	device hal.Device
	queue  hal.Queue
	label  string
	usage  gputypes.BufferUsage
	buf    hal.Buffer
	size   uint64
}

// NewStorageBuffer creates a storage buffer of at least size bytes.
func NewStorageBuffer(device hal.Device, queue hal.Queue, label string, size uint64) (*StorageBuffer, error) {
	return newBuffer(device, queue, label, size, gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
}

// NewUniformBuffer creates a uniform buffer of at least size bytes.
func NewUniformBuffer(device hal.Device, queue hal.Queue, label string, size uint64) (*StorageBuffer, error) {
	return newBuffer(device, queue, label, size, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
}

func newBuffer(device hal.Device, queue hal.Queue, label string, size uint64, usage gputypes.BufferUsage) (*StorageBuffer, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	b := &StorageBuffer{device: device, queue: queue, label: label, usage: usage}
	if err := b.allocate(size); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *StorageBuffer) allocate(size uint64) error {
	size = alignSize(size)
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.label,
		Size:  size,
		Usage: b.usage,
	})
	if err != nil {
		return fmt.Errorf("create %s buffer (%d bytes): %w", b.label, size, err)
	}
	if b.buf != nil {
		b.device.DestroyBuffer(b.buf)
	}
	b.buf = buf
	b.size = size
	return nil
}

// alignSize rounds up to a multiple of 4 with a floor of minBufferSize.
func alignSize(n uint64) uint64 {
	if n < minBufferSize {
		return minBufferSize
	}
	return (n + 3) &^ 3
}

// Write uploads data at offset 0, growing the buffer when needed.
// grown reports that the handle changed and bind groups must be rebuilt.
func (b *StorageBuffer) Write(data []byte) (grown bool, err error) {
	if b.buf == nil {
		return false, ErrBufferDestroyed
	}
	if uint64(len(data)) > b.size {
		if err := b.allocate(uint64(len(data))); err != nil {
			return false, err
		}
		grown = true
		slogger().Debug("storage buffer grown", "label", b.label, "size", b.size)
	}
	if len(data) > 0 && b.queue != nil {
		b.queue.WriteBuffer(b.buf, 0, data)
	}
	return grown, nil
}

// Buffer returns the current handle.
func (b *StorageBuffer) Buffer() hal.Buffer { return b.buf }

// Size returns the allocation size in bytes.
func (b *StorageBuffer) Size() uint64 { return b.size }

// Destroy releases the buffer. It is safe to call more than once.
func (b *StorageBuffer) Destroy() {
	if b == nil || b.buf == nil {
		return
	}
	b.device.DestroyBuffer(b.buf)
	b.buf = nil
	b.size = 0
}
