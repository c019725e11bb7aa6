package shim

import "strings"

// OpenFlags are the POSIX open flags understood by Open. The values match the
// constants the GOOS=js runtime reads from fs.constants and must not change.
type OpenFlags uint32

const (
	OpenReadOnly  OpenFlags = 0
	OpenWriteOnly OpenFlags = 1
	OpenReadWrite OpenFlags = 2
	OpenCreate    OpenFlags = 64
	OpenExclusive OpenFlags = 128
	OpenTruncate  OpenFlags = 512
	OpenAppend    OpenFlags = 1024
	OpenDirectory OpenFlags = 65536
)

var flagNames = []struct {
	flag OpenFlags
	name string
}{
	{OpenWriteOnly, "O_WRONLY"},
	{OpenReadWrite, "O_RDWR"},
	{OpenCreate, "O_CREAT"},
	{OpenExclusive, "O_EXCL"},
	{OpenTruncate, "O_TRUNC"},
	{OpenAppend, "O_APPEND"},
	{OpenDirectory, "O_DIRECTORY"},
}

// Has reports whether every bit of mask is set in f.
func (f OpenFlags) Has(mask OpenFlags) bool {
	return f&mask == mask
}

// Writable reports whether f permits writes.
func (f OpenFlags) Writable() bool {
	return f&(OpenWriteOnly|OpenReadWrite) != 0
}

func (f OpenFlags) String() string {
	var names []string
	for _, n := range flagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "O_RDONLY"
	}
	return strings.Join(names, "|")
}
