package password

// Raw wraps a password in memory so that its contents are never leaked by
// accidental logging and can be explicitly wiped once no longer needed. Go
// has no destructors, so callers must call Clear when done; Raw does not
// rely on a finalizer.
type Raw struct {
	b []byte
}

// NewRaw copies s into a Raw. The caller remains responsible for the
// lifetime of s itself; Raw only protects its own internal copy.
func NewRaw(s string) *Raw {
	b := make([]byte, len(s))
	copy(b, s)
	return &Raw{b: b}
}

// Bytes returns the underlying bytes. The returned slice aliases Raw's
// storage; callers must not retain it past a Clear call.
func (r *Raw) Bytes() []byte {
	if r == nil {
		return nil
	}
	return r.b
}

// Expose renders the raw password as its UTF-8 string form, used only at
// the point of hashing or policy validation. Named distinctly from
// String() so Raw does not accidentally satisfy fmt.Stringer and leak
// through %v/%s formatting.
func (r *Raw) Expose() string {
	if r == nil {
		return ""
	}
	return string(r.b)
}

// String implements fmt.Stringer with a redacted placeholder so that
// logging a Raw by accident never leaks its contents.
func (r *Raw) String() string { return "REDACTED" }

// Clear overwrites the underlying bytes with zeroes. Safe to call more than
// once and on a nil receiver.
func (r *Raw) Clear() {
	if r == nil {
		return
	}
	for i := range r.b {
		r.b[i] = 0
	}
}

// GoString redacts the contents from %#v formatting.
func (r *Raw) GoString() string { return "password.Raw(REDACTED)" }
