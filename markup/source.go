package markup

import (
	"bufio"
	"io"
)

// source is a rune reader with a single snapshot that can be restored.
// Runes read after mark are retained until release so that reset can replay
// them.
type source struct {
	r      *bufio.Reader
	buf    []rune
	pos    int
	marked bool
	err    error
}

func newSource(r io.Reader) *source {
	return &source{r: bufio.NewReader(r)}
}

// read returns the next rune. Errors are sticky.
func (s *source) read() (rune, error) {
	if s.pos < len(s.buf) {
		c := s.buf[s.pos]
		s.pos++
		return c, nil
	}
	if s.err != nil {
		return 0, s.err
	}
	if !s.marked {
		s.buf = s.buf[:0]
		s.pos = 0
	}
	c, _, err := s.r.ReadRune()
	if err != nil {
		s.err = err
		return 0, err
	}
	if s.marked {
		s.buf = append(s.buf, c)
		s.pos++
	}
	return c, nil
}

// mark takes a snapshot of the current position.
func (s *source) mark() int {
	if s.pos > 0 {
		n := copy(s.buf, s.buf[s.pos:])
		s.buf = s.buf[:n]
		s.pos = 0
	}
	s.marked = true
	return s.pos
}

// reset rewinds to the snapshot taken by mark and drops it.
func (s *source) reset(p int) {
	s.pos = p
	s.marked = false
}

// release drops the snapshot without rewinding.
func (s *source) release() {
	s.marked = false
}
