package binary

import "fmt"

// Cursor is a position into an immutable byte buffer. Decoding owns one
// cursor at a time; link resolution opens side cursors against the same
// buffer without consuming bytes from the caller's.
type Cursor struct {
	data  []byte
	pos   int
	limit int
	bases map[string]int
}

// StartBase is registered on every cursor and names the beginning of the
// input buffer.
const StartBase = "start"

// StructBase names the start of the innermost struct being decoded.
const StructBase = "struct"

// NewCursor opens a cursor over the whole buffer.
func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data, limit: len(data), bases: map[string]int{StartBase: 0}}
}

// Remaining returns the number of unconsumed bytes.
func (c *Cursor) Remaining() int { return c.limit - c.pos }

// Offset returns the absolute position in the underlying buffer.
func (c *Cursor) Offset() int { return c.pos }

// Peek returns the next n bytes without consuming them.
func (c *Cursor) Peek(n int) ([]byte, error) {
	if c.Remaining() < n {
		return nil, &InsufficientBytesError{Needed: n, Available: c.Remaining()}
	}
	return c.data[c.pos : c.pos+n], nil
}

// Consume advances past the next n bytes and returns them.
func (c *Cursor) Consume(n int) ([]byte, error) {
	b, err := c.Peek(n)
	if err != nil {
		return nil, err
	}
	c.pos += n
	return b, nil
}

// Fork copies the cursor so a speculative decode can run without moving
// the original. Commit the fork by copying its position back.
func (c *Cursor) Fork() *Cursor {
	fork := *c
	return &fork
}

// CommitFrom adopts a fork's position.
func (c *Cursor) CommitFrom(fork *Cursor) { c.pos = fork.pos }

// WithBase returns a cursor that additionally resolves the named base to
// the current position. The receiver is unchanged.
func (c *Cursor) WithBase(name string) *Cursor {
	next := *c
	next.bases = make(map[string]int, len(c.bases)+1)
	for k, v := range c.bases {
		next.bases[k] = v
	}
	next.bases[name] = c.pos
	return &next
}

// Seek opens a fresh cursor at base+offset. A non-negative length bounds
// the new cursor to that many bytes; a negative length leaves it open to
// the end of the buffer.
func (c *Cursor) Seek(base string, offset int64, length int64) (*Cursor, error) {
	origin, ok := c.bases[base]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBase, base)
	}
	abs := int64(origin) + offset
	if abs < 0 || abs > int64(len(c.data)) {
		return nil, &LinkResolutionError{Base: base, Offset: offset}
	}
	limit := int64(len(c.data))
	if length >= 0 {
		limit = abs + length
		if limit > int64(len(c.data)) {
			return nil, &LinkResolutionError{Base: base, Offset: offset}
		}
	}
	return &Cursor{data: c.data, pos: int(abs), limit: int(limit), bases: c.bases}, nil
}

// Bounded returns a cursor over the next n bytes of the receiver and
// consumes them from it.
func (c *Cursor) Bounded(n int) (*Cursor, error) {
	if c.Remaining() < n {
		return nil, &InsufficientBytesError{Needed: n, Available: c.Remaining()}
	}
	sub := &Cursor{data: c.data, pos: c.pos, limit: c.pos + n, bases: c.bases}
	c.pos += n
	return sub, nil
}
