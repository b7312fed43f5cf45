/*
	This file supports serialization/deserialization and compression of data.
*/

package schemgen

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
)

// Compression is the format of compression for serialized data.
// NOTE: Should be no more than 8 (3 bits) of compression types.
type Compression uint8

const (
	Uncompressed Compression = iota
	Gzip
	Snappy
)

func (compress Compression) String() string {
	switch compress {
	case Uncompressed:
		return "none"
	case Gzip:
		return "gzip"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// ParseCompression returns the Compression for a name as used in configuration,
// i.e., "none", "gzip" or "snappy".  An empty name returns the given default.
func ParseCompression(name string, def Compression) (Compression, error) {
	switch strings.ToLower(name) {
	case "":
		return def, nil
	case "none", "uncompressed":
		return Uncompressed, nil
	case "gzip":
		return Gzip, nil
	case "snappy":
		return Snappy, nil
	default:
		return def, fmt.Errorf("unknown compression %q: %w", name, ErrInvalidArgument)
	}
}

// Checksum is the type of checksum employed for error checking serialized data.
// NOTE: Should be no more than 4 (2 bits) of checksum types.
type Checksum uint8

const (
	NoChecksum Checksum = 0
	CRC32      Checksum = 1
)

func (checksum Checksum) String() string {
	switch checksum {
	case NoChecksum:
		return "No checksum"
	case CRC32:
		return "CRC32 checksum"
	default:
		return "Unknown checksum"
	}
}

// SerializationFormat is a single byte combining both compression and checksum methods.
type SerializationFormat uint8

func EncodeSerializationFormat(compress Compression, checksum Checksum) SerializationFormat {
	a := (uint8(compress) & 0x07) << 5
	b := (uint8(checksum) & 0x03) << 3
	return SerializationFormat(a | b)
}

func DecodeSerializationFormat(s SerializationFormat) (compress Compression, checksum Checksum) {
	compress = Compression(uint8(s) >> 5)
	checksum = Checksum((uint8(s) >> 3) & 0x03)
	return
}

// Compress returns the data compressed with the given method.
func Compress(data []byte, compress Compression) ([]byte, error) {
	switch compress {
	case Uncompressed:
		return data, nil
	case Gzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case Snappy:
		return snappy.Encode(nil, data), nil
	default:
		return nil, fmt.Errorf("illegal compression (%d) during serialization: %w", compress, ErrInvalidArgument)
	}
}

// Decompress reverses Compress.
func Decompress(data []byte, compress Compression) ([]byte, error) {
	switch compress {
	case Uncompressed:
		return data, nil
	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("can't uncompress gzip data: %v", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case Snappy:
		return snappy.Decode(nil, data)
	default:
		return nil, fmt.Errorf("illegal compression (%d) during deserialization: %w", compress, ErrInvalidArgument)
	}
}

// SerializeData serializes a slice of bytes using optional compression and checksum.
// The first byte holds the SerializationFormat, followed by any checksum and the data.
func SerializeData(data []byte, compress Compression, checksum Checksum) ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte(byte(EncodeSerializationFormat(compress, checksum)))

	byteData, err := Compress(data, compress)
	if err != nil {
		return nil, err
	}

	switch checksum {
	case NoChecksum:
	case CRC32:
		crcChecksum := crc32.ChecksumIEEE(byteData)
		if err := binary.Write(&buffer, binary.LittleEndian, crcChecksum); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("illegal checksum (%s) in SerializeData(): %w", checksum, ErrInvalidArgument)
	}

	// Note the actual data is written last, after any checksum so we don't have to
	// worry about length when deserializing.
	buffer.Write(byteData)
	return buffer.Bytes(), nil
}

// DeserializeData deserializes a slice of bytes using stored compression and checksum.
func DeserializeData(s []byte) (data []byte, compress Compression, err error) {
	if len(s) == 0 {
		err = fmt.Errorf("cannot deserialize empty data")
		return
	}
	var checksum Checksum
	compress, checksum = DecodeSerializationFormat(SerializationFormat(s[0]))
	cdata := s[1:]

	switch checksum {
	case NoChecksum:
	case CRC32:
		if len(cdata) < 4 {
			err = fmt.Errorf("serialized data too short for checksum")
			return
		}
		storedCrc32 := binary.LittleEndian.Uint32(cdata[0:4])
		cdata = cdata[4:]
		if crcChecksum := crc32.ChecksumIEEE(cdata); crcChecksum != storedCrc32 {
			err = fmt.Errorf("bad checksum.  Stored %x got %x", storedCrc32, crcChecksum)
			return
		}
	default:
		err = fmt.Errorf("illegal checksum in deserializing data")
		return
	}

	data, err = Decompress(cdata, compress)
	return
}
