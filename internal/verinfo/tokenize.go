package verinfo

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// rootKey opens every version block.
const rootKey = "VS_VERSION_INFO"

// Tokenize decodes a UTF-16LE version block into a key/value map.
//
// The block is split into runs of printable ASCII. Keys and values of the
// string table are NUL-terminated, so a run ended by any other unit is a
// length or type field that happens to be printable and is dropped. Each
// remaining token is mapped to the token that follows it and the first
// occurrence of a key wins: "FileVersion" maps to its value, while fields of
// the fixed file info only produce entries no caller looks up.
func Tokenize(block []byte) (map[string]string, error) {
	if len(block)%2 != 0 {
		return nil, fmt.Errorf("%w: odd block length %d", ErrDecode, len(block))
	}

	var (
		tokens  []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(block); i += 2 {
		switch unit := binary.LittleEndian.Uint16(block[i:]); {
		case unit >= 0x20 && unit < 0x7f:
			current.WriteByte(byte(unit))
		case unit == 0:
			flush()
		default:
			current.Reset()
		}
	}

	// A truncated block may end inside a value.
	flush()

	values := make(map[string]string, len(tokens))
	rootSeen := false

	for i, token := range tokens {
		if token == rootKey {
			rootSeen = true
		}

		if i+1 >= len(tokens) {
			break
		}

		if _, ok := values[token]; !ok {
			values[token] = tokens[i+1]
		}
	}

	if !rootSeen {
		return nil, fmt.Errorf("%w: %s key not found", ErrDecode, rootKey)
	}

	return values, nil
}
