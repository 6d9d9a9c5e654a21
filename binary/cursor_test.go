package binary

import (
	"errors"
	"testing"
)

func TestSeekUnknownBase(t *testing.T) {
	cur := NewCursor([]byte{1, 2, 3, 4})
	if _, err := cur.Seek("header", 0, -1); !errors.Is(err, ErrUnknownBase) {
		t.Errorf("expected ErrUnknownBase, got %v", err)
	}
}

func TestSeekOutOfRange(t *testing.T) {
	cur := NewCursor([]byte{1, 2, 3, 4})
	if _, err := cur.Seek(StartBase, 5, -1); !errors.Is(err, ErrLinkResolution) {
		t.Errorf("expected ErrLinkResolution, got %v", err)
	}
	if _, err := cur.Seek(StartBase, 2, 3); !errors.Is(err, ErrLinkResolution) {
		t.Errorf("expected ErrLinkResolution, got %v", err)
	}
}

func TestSeekRegisteredBase(t *testing.T) {
	cur := NewCursor([]byte{1, 2, 3, 4})
	if _, err := cur.Consume(2); err != nil {
		t.Fatal(err)
	}
	side, err := cur.WithBase(StructBase).Seek(StructBase, 1, 1)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	b, err := side.Consume(1)
	if err != nil || b[0] != 4 {
		t.Errorf("expected byte 4 at struct+1, got %v (%v)", b, err)
	}
}
