package binform

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/partite-ai/binform/core"
	"github.com/partite-ai/binform/testutil/termmatcher"
)

const packetModule = `
// A length-prefixed list of big-endian words.
{
	"declarations": [
		{
			"name": "Packet",
			"body": {
				"term": "struct",
				"fields": [
					{"name": "count", "type": "u16"},
					{"name": "values", "type": {"term": "array", "elem": "u16", "len": "count"}},
				],
			},
		},
	],
}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "binform.yaml", "byte_order: little\nrequire_otherwise: true\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.ByteOrder != "little" || !cfg.RequireOtherwise || cfg.AllowNonLastUnknownChoice {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadConfigBadByteOrder(t *testing.T) {
	path := writeFile(t, "binform.yaml", "byte_order: middle\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error for an unknown byte order")
	}
}

func TestElaborateFileRoundTrip(t *testing.T) {
	path := writeFile(t, "packet.jsonc", packetModule)
	m, err := ElaborateFile(path, Config{})
	if err != nil {
		t.Fatalf("ElaborateFile failed: %v", err)
	}

	data := []byte{0x00, 0x02, 0x00, 0x0a, 0x00, 0x14}
	value, n, err := Decode(m, "Packet", data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if n != len(data) {
		t.Errorf("consumed %d bytes, want %d", n, len(data))
	}
	match := termmatcher.Record(
		termmatcher.Field("count", termmatcher.Int(2)),
		termmatcher.Field("values", termmatcher.Ints(10, 20)),
	)
	if err := match(value); err != nil {
		t.Errorf("decoded value: %v", err)
	}

	out, err := Encode(m, "Packet", value)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("encode produced % x, want % x", out, data)
	}
}

func TestConfigByteOrder(t *testing.T) {
	path := writeFile(t, "packet.jsonc", packetModule)
	m, err := ElaborateFile(path, Config{ByteOrder: "little"})
	if err != nil {
		t.Fatalf("ElaborateFile failed: %v", err)
	}
	value, err := DecodeComplete(m, "Packet", []byte{0x01, 0x00, 0x2a, 0x00})
	if err != nil {
		t.Fatalf("DecodeComplete failed: %v", err)
	}
	if got := core.String(value); got != "{count = 1, values = [42]}" {
		t.Errorf("unexpected value %s", got)
	}
}

func TestDecodeUnknownFormat(t *testing.T) {
	path := writeFile(t, "packet.jsonc", packetModule)
	m, err := ElaborateFile(path, Config{})
	if err != nil {
		t.Fatalf("ElaborateFile failed: %v", err)
	}
	if _, _, err := Decode(m, "Missing", nil); err == nil {
		t.Error("expected an error for an unknown format name")
	}
}
