//go:build windows

package verinfo

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// systemReader queries version.dll.
type systemReader struct{}

func defaultReader() Reader {
	return systemReader{}
}

// Size implements Reader. GetFileVersionInfoSize fails with
// ERROR_RESOURCE_TYPE_NOT_FOUND or ERROR_BAD_FORMAT when the file has no
// version resource; both are reported as a zero size.
func (systemReader) Size(path string) (uint32, error) {
	size, err := windows.GetFileVersionInfoSize(path, nil)
	if size == 0 {
		return 0, nil //nolint:nilerr // Zero size is the documented "no version info" answer.
	}

	if err != nil {
		return 0, fmt.Errorf("GetFileVersionInfoSize: %w", err)
	}

	return size, nil
}

// Read implements Reader.
func (systemReader) Read(path string, size uint32) ([]byte, error) {
	buffer := make([]byte, size)

	if err := windows.GetFileVersionInfo(path, 0, size, unsafe.Pointer(&buffer[0])); err != nil {
		return nil, fmt.Errorf("GetFileVersionInfo: %w", err)
	}

	return buffer, nil
}
