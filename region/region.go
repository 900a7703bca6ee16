// Package region provides the named memory regions that access patterns touch.
package region

// A Region is a named block of memory. The buffer is owned by the Registry
// that created it and lives until the registry is released.
type Region struct {
	name     string
	size     uint64
	subSize  uint64
	dataFile string

	buf []byte
}

// Name returns the name of the region.
func (r *Region) Name() string {
	return r.name
}

// Size returns the number of bytes allocated for the region.
func (r *Region) Size() uint64 {
	return r.size
}

// SubSize returns the size of the window, starting at offset 0, that access
// patterns are allowed to touch. It is never larger than Size.
func (r *Region) SubSize() uint64 {
	return r.subSize
}

// DataFile returns the path of the file the region was initialized from, or
// an empty string.
func (r *Region) DataFile() string {
	return r.dataFile
}

// Load reads the byte at the given offset.
//
// Concurrent Load and Store calls on the same offset are allowed. The value
// observed may be stale but the access itself is always in bounds.
func (r *Region) Load(offset uint64) byte {
	return r.buf[offset]
}

// Store writes a byte at the given offset.
func (r *Region) Store(offset uint64, v byte) {
	r.buf[offset] = v
}

// Bytes exposes the backing buffer. It is meant for inspection after a run
// and for tests.
func (r *Region) Bytes() []byte {
	return r.buf
}
