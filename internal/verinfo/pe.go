package verinfo

import (
	"debug/pe"
	"encoding/binary"
	"fmt"
	"os"
)

const (
	// rtVersion is the resource type id of RT_VERSION.
	rtVersion = 16

	resourceDirHeaderSize = 16
	resourceDirEntrySize  = 8
	resourceDataEntrySize = 16

	// resourceSubdirFlag marks a directory entry that points to another directory.
	resourceSubdirFlag = 0x80000000
)

// PEReader reads version blocks straight from the resource section of a PE file.
// Files that are not PE images report a size of zero, as the Win32 API does.
type PEReader struct{}

// Size implements Reader.
func (PEReader) Size(path string) (uint32, error) {
	block, err := peVersionBlock(path)
	if err != nil {
		return 0, err
	}

	return uint32(len(block)), nil //nolint:gosec // Bounded by the 32-bit size field of the data entry.
}

// Read implements Reader.
func (PEReader) Read(path string, size uint32) ([]byte, error) {
	block, err := peVersionBlock(path)
	if err != nil {
		return nil, err
	}

	if uint32(len(block)) < size { //nolint:gosec // See Size.
		return nil, fmt.Errorf("%w: version block shrank to %d bytes", ErrDecode, len(block))
	}

	return block[:size], nil
}

// peVersionBlock returns the RT_VERSION resource of the file, or nil when it has none.
func peVersionBlock(path string) ([]byte, error) {
	file, err := os.Open(path) //nolint:gosec // Path comes from the packaging layout.
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = file.Close()
	}()

	image, err := pe.NewFile(file)
	if err != nil {
		// Not a PE image, so there is no version resource to read.
		return nil, nil //nolint:nilerr // Matches GetFileVersionInfoSize on non-PE files.
	}

	defer func() {
		_ = image.Close()
	}()

	dir, ok := resourceDirectory(image)
	if !ok || dir.VirtualAddress == 0 || dir.Size == 0 {
		return nil, nil
	}

	for _, section := range image.Sections {
		start := section.VirtualAddress
		end := start + max(section.VirtualSize, section.Size)

		if dir.VirtualAddress < start || dir.VirtualAddress >= end {
			continue
		}

		data, err := section.Data()
		if err != nil {
			return nil, fmt.Errorf("read section %s: %w", section.Name, err)
		}

		return versionResource(data, start, dir.VirtualAddress-start)
	}

	return nil, fmt.Errorf("%w: resource directory is outside every section", ErrDecode)
}

func resourceDirectory(image *pe.File) (pe.DataDirectory, bool) {
	var dirs []pe.DataDirectory

	switch header := image.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		dirs = header.DataDirectory[:min(int(header.NumberOfRvaAndSizes), len(header.DataDirectory))]
	case *pe.OptionalHeader64:
		dirs = header.DataDirectory[:min(int(header.NumberOfRvaAndSizes), len(header.DataDirectory))]
	default:
		return pe.DataDirectory{}, false
	}

	if len(dirs) <= pe.IMAGE_DIRECTORY_ENTRY_RESOURCE {
		return pe.DataDirectory{}, false
	}

	return dirs[pe.IMAGE_DIRECTORY_ENTRY_RESOURCE], true
}

type resourceEntry struct {
	id     uint32
	offset uint32
}

// versionResource walks the type/name/language levels of the resource tree
// rooted at offset root of sec and returns the first RT_VERSION data blob.
// sectionVA is the virtual address sec is loaded at.
func versionResource(sec []byte, sectionVA, root uint32) ([]byte, error) {
	types, err := resourceEntries(sec, root)
	if err != nil {
		return nil, err
	}

	var next uint32

	found := false

	for _, entry := range types {
		if entry.id == rtVersion && entry.offset&resourceSubdirFlag != 0 {
			next = entry.offset &^ resourceSubdirFlag
			found = true

			break
		}
	}

	if !found {
		return nil, nil
	}

	// Name level, then language level: the first entry of each is taken.
	for level := 0; level < 2; level++ {
		entries, err := resourceEntries(sec, root+next)
		if err != nil {
			return nil, err
		}

		if len(entries) == 0 {
			return nil, nil
		}

		isDir := entries[0].offset&resourceSubdirFlag != 0
		if isDir != (level == 0) {
			return nil, fmt.Errorf("%w: unexpected resource tree shape", ErrDecode)
		}

		next = entries[0].offset &^ resourceSubdirFlag
	}

	at := uint64(root) + uint64(next)
	if at+resourceDataEntrySize > uint64(len(sec)) {
		return nil, fmt.Errorf("%w: resource data entry out of bounds", ErrDecode)
	}

	rva := binary.LittleEndian.Uint32(sec[at:])
	size := binary.LittleEndian.Uint32(sec[at+4:])

	if rva < sectionVA || uint64(rva-sectionVA)+uint64(size) > uint64(len(sec)) {
		return nil, fmt.Errorf("%w: version data out of bounds", ErrDecode)
	}

	start := rva - sectionVA

	return sec[start : start+size], nil
}

// resourceEntries reads the entries of the IMAGE_RESOURCE_DIRECTORY at off.
func resourceEntries(sec []byte, off uint32) ([]resourceEntry, error) {
	if uint64(off)+resourceDirHeaderSize > uint64(len(sec)) {
		return nil, fmt.Errorf("%w: resource directory out of bounds", ErrDecode)
	}

	named := binary.LittleEndian.Uint16(sec[off+12:])
	ids := binary.LittleEndian.Uint16(sec[off+14:])
	count := uint64(named) + uint64(ids)

	first := uint64(off) + resourceDirHeaderSize
	if first+count*resourceDirEntrySize > uint64(len(sec)) {
		return nil, fmt.Errorf("%w: resource directory entries out of bounds", ErrDecode)
	}

	entries := make([]resourceEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		at := first + i*resourceDirEntrySize
		entries = append(entries, resourceEntry{
			id:     binary.LittleEndian.Uint32(sec[at:]),
			offset: binary.LittleEndian.Uint32(sec[at+4:]),
		})
	}

	return entries, nil
}
