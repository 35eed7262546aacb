// Package verinfotest builds version-information blocks and minimal PE
// images for tests of packages that read executable versions.
package verinfotest

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"unicode/utf16"
)

const (
	fixedFileInfoSize = 52
	fixedSignature    = 0xFEEF04BD

	// SectionVA is the virtual address of the .rsrc section in images built by PE.
	SectionVA = 0x1000

	rsrcFileOffset = 0x200
	rtVersion      = 16
	subdirFlag     = 0x80000000
)

// Block returns a VS_VERSION_INFO block with a single English string table
// holding the given key/value pairs in order.
func Block(pairs ...string) []byte {
	strs := make([][]byte, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		value := utf16z(pairs[i+1])
		strs = append(strs, node(pairs[i], uint16(len(value)/2), 1, value)) //nolint:gosec // Test data.
	}

	fixed := make([]byte, fixedFileInfoSize)
	binary.LittleEndian.PutUint32(fixed[0:], fixedSignature)
	binary.LittleEndian.PutUint32(fixed[4:], 0x00010000)
	// dwFileFlagsMask is 0x3F, a printable unit inside the binary part.
	binary.LittleEndian.PutUint32(fixed[24:], 0x3F)
	binary.LittleEndian.PutUint32(fixed[32:], 0x00040004)
	binary.LittleEndian.PutUint32(fixed[36:], 1)

	translation := []byte{0x09, 0x04, 0xb0, 0x04}

	return node("VS_VERSION_INFO", fixedFileInfoSize, 0, fixed,
		node("StringFileInfo", 0, 1, nil,
			node("040904b0", 0, 1, nil, strs...),
		),
		node("VarFileInfo", 0, 1, nil,
			node("Translation", uint16(len(translation)), 0, translation),
		),
	)
}

// ResourceSection returns a .rsrc section, loaded at SectionVA, whose
// resource tree holds block as the RT_VERSION resource with id 1 and
// language 0x409. A nil block produces a tree with only an RT_ICON entry.
func ResourceSection(block []byte) []byte {
	const (
		rootDir   = 0
		nameDir   = 24
		langDir   = 48
		dataEntry = 72
		blobStart = 88
	)

	sec := make([]byte, blobStart, blobStart+len(block))

	typeID := uint32(rtVersion)
	if block == nil {
		typeID = 3
	}

	writeDir(sec[rootDir:], typeID, subdirFlag|nameDir)
	writeDir(sec[nameDir:], 1, subdirFlag|langDir)
	writeDir(sec[langDir:], 0x409, dataEntry)

	binary.LittleEndian.PutUint32(sec[dataEntry:], SectionVA+blobStart)
	binary.LittleEndian.PutUint32(sec[dataEntry+4:], uint32(len(block))) //nolint:gosec // Test data.

	return append(sec, block...)
}

// PE returns a minimal 32-bit PE image whose only section is the resource
// section built from block.
func PE(block []byte) []byte {
	rsrc := ResourceSection(block)

	var buf bytes.Buffer

	dos := make([]byte, 0x40)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[0x3c:], 0x40)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")

	optional := pe.OptionalHeader32{
		Magic:               0x10b,
		SectionAlignment:    0x1000,
		FileAlignment:       0x200,
		SizeOfImage:         0x2000,
		SizeOfHeaders:       rsrcFileOffset,
		Subsystem:           2,
		NumberOfRvaAndSizes: 16,
	}
	optional.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_RESOURCE] = pe.DataDirectory{
		VirtualAddress: SectionVA,
		Size:           uint32(len(rsrc)), //nolint:gosec // Test data.
	}

	header := pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_I386,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(binary.Size(optional)), //nolint:gosec // Fixed size.
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_32BIT_MACHINE,
	}

	section := pe.SectionHeader32{
		VirtualSize:      uint32(len(rsrc)), //nolint:gosec // Test data.
		VirtualAddress:   SectionVA,
		SizeOfRawData:    uint32(len(rsrc)), //nolint:gosec // Test data.
		PointerToRawData: rsrcFileOffset,
		Characteristics:  pe.IMAGE_SCN_CNT_INITIALIZED_DATA | pe.IMAGE_SCN_MEM_READ,
	}
	copy(section.Name[:], ".rsrc")

	for _, v := range []any{header, optional, section} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}

	buf.Write(make([]byte, rsrcFileOffset-buf.Len()))
	buf.Write(rsrc)

	return buf.Bytes()
}

// node serializes one version structure: wLength, wValueLength, wType, the
// NUL-terminated key, the value and the children, each 32-bit aligned.
func node(key string, valueLength, valueType uint16, value []byte, children ...[]byte) []byte {
	body := make([]byte, 6, 64)
	body = append(body, utf16z(key)...)
	body = align(body)
	body = append(body, value...)

	for _, child := range children {
		body = align(body)
		body = append(body, child...)
	}

	binary.LittleEndian.PutUint16(body[0:], uint16(len(body))) //nolint:gosec // Test data.
	binary.LittleEndian.PutUint16(body[2:], valueLength)
	binary.LittleEndian.PutUint16(body[4:], valueType)

	return body
}

func writeDir(dst []byte, id, offset uint32) {
	binary.LittleEndian.PutUint16(dst[14:], 1)
	binary.LittleEndian.PutUint32(dst[16:], id)
	binary.LittleEndian.PutUint32(dst[20:], offset)
}

func utf16z(s string) []byte {
	units := append(utf16.Encode([]rune(s)), 0)
	out := make([]byte, 2*len(units))

	for i, u := range units {
		binary.LittleEndian.PutUint16(out[2*i:], u)
	}

	return out
}

func align(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}

	return b
}
