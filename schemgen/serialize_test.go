package schemgen

import (
	"bytes"
	"errors"
	"testing"
)

func TestSerializeData(t *testing.T) {
	data := bytes.Repeat([]byte("palette entries compress well; "), 50)
	for _, compression := range []Compression{Uncompressed, Gzip, Snappy} {
		for _, checksum := range []Checksum{NoChecksum, CRC32} {
			s, err := SerializeData(data, compression, checksum)
			if err != nil {
				t.Fatalf("SerializeData(%s, %s): %v", compression, checksum, err)
			}
			if len(s) == 0 {
				t.Fatalf("Bad SerializeData() - output length 0")
			}
			got, compress, err := DeserializeData(s)
			if err != nil {
				t.Fatalf("DeserializeData(%s, %s): %v", compression, checksum, err)
			}
			if compress != compression {
				t.Errorf("expected stored compression %s, got %s", compression, compress)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("round trip with %s and %s altered data", compression, checksum)
			}

			if checksum != NoChecksum {
				s[5] = s[5] ^ 0x04 // Flip a bit
				if _, _, err = DeserializeData(s); err == nil {
					t.Errorf("expected checksum failure for %s", compression)
				}
			}
		}
	}
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		name string
		want Compression
	}{
		{"", Gzip},
		{"none", Uncompressed},
		{"GZIP", Gzip},
		{"snappy", Snappy},
	}
	for _, tc := range tests {
		got, err := ParseCompression(tc.name, Gzip)
		if err != nil {
			t.Fatalf("ParseCompression(%q): %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("ParseCompression(%q) = %s, expected %s", tc.name, got, tc.want)
		}
	}
	if _, err := ParseCompression("lz4", Gzip); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected invalid argument for lz4, got %v", err)
	}
}
