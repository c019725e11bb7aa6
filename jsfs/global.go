package jsfs

// NewGlobal returns a globalThis carrying fs, process and the constructors the
// GOOS=js runtime looks up.
func NewGlobal(fs, process Value) Object {
	return NewObject(map[string]Value{
		"fs":         fs,
		"process":    process,
		"Object":     ValueOf(newObject),
		"Array":      ValueOf(newArray),
		"Uint8Array": ValueOf(newUint8Array),
	})
}
