package text

// Span is a half-open byte range [Lo, Hi) inside the file identified by
// FileID. The invariant Lo <= Hi holds for every span produced by the
// pipeline, and the covered slice of file content is valid UTF-8.
type Span struct {
	FileID uint32
	Lo     uint32
	Hi     uint32
}

// Join returns the smallest span covering both a and b.
// A zero-file span adopts the other span's file.
func Join(a, b Span) Span {
	s := a
	if s.FileID == 0 {
		s.FileID = b.FileID
	}
	if b.Lo < s.Lo {
		s.Lo = b.Lo
	}
	if b.Hi > s.Hi {
		s.Hi = b.Hi
	}
	return s
}

// Valid reports whether the span's byte range is ordered.
func (s Span) Valid() bool { return s.Lo <= s.Hi }

// Len returns the byte length of the span.
func (s Span) Len() uint32 {
	if s.Hi < s.Lo {
		return 0
	}
	return s.Hi - s.Lo
}
