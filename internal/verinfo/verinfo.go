package verinfo

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	keyFileVersion    = "FileVersion"
	keyProductVersion = "ProductVersion"
)

// ErrDecode is returned when a version block is present but cannot be decoded.
var ErrDecode = errors.New("malformed version resource")

// Info holds the version strings of an executable.
// An empty field means the resource does not carry a usable value.
type Info struct {
	FileVersion    string
	ProductVersion string
}

// Empty reports whether neither version is known.
func (i *Info) Empty() bool {
	return i.FileVersion == "" && i.ProductVersion == ""
}

// Reader fetches the raw version-information block of a file.
type Reader interface {
	// Size returns the size of the version block, or 0 when there is none.
	Size(path string) (uint32, error)
	// Read returns the version block; size is the value reported by Size.
	Read(path string, size uint32) ([]byte, error)
}

// Resolve reads the version of the executable at path with the platform's default Reader.
func Resolve(path string) (*Info, error) {
	return ResolveWith(defaultReader(), path)
}

// ResolveWith reads the version of the executable at path using r.
func ResolveWith(r Reader, path string) (*Info, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat executable: %w", err)
	}

	size, err := r.Size(path)
	if err != nil {
		return nil, fmt.Errorf("query version size of %s: %w", path, err)
	}

	if size == 0 {
		return new(Info), nil
	}

	block, err := r.Read(path, size)
	if err != nil {
		return nil, fmt.Errorf("read version block of %s: %w", path, err)
	}

	return Decode(block)
}

// Decode extracts Info from a raw version-information block.
func Decode(block []byte) (*Info, error) {
	values, err := Tokenize(block)
	if err != nil {
		return nil, err
	}

	return &Info{
		FileVersion:    versionNumber(values[keyFileVersion]),
		ProductVersion: versionNumber(values[keyProductVersion]),
	}, nil
}

// versionNumber returns s if it is a dotted or comma separated number such as
// "2.5.1.0" or "2,5,1,0", and "" otherwise.
func versionNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	digitsSeen := false

	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digitsSeen = true
		case c == '.' || c == ',':
			// Separators must sit between digits.
			if !digitsSeen || i == len(s)-1 {
				return ""
			}

			digitsSeen = false
		default:
			return ""
		}
	}

	return s
}
