//go:build !windows

package verinfo

func defaultReader() Reader {
	return PEReader{}
}
