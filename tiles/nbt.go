package tiles

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/gzip"

	"github.com/janelia-flyem/schemgen/blocks"
	"github.com/janelia-flyem/schemgen/schemgen"
)

// NBT tag types.
const (
	tagEnd byte = iota
	tagByte
	tagShort
	tagInt
	tagLong
	tagFloat
	tagDouble
	tagByteArray
	tagString
	tagList
	tagCompound
	tagIntArray
	tagLongArray
)

const (
	// maxListLen bounds list and array lengths accepted while decoding.
	maxListLen = 1 << 26

	// maxDepth bounds nesting of lists and compounds accepted while decoding.
	maxDepth = 512

	readChunk = 1 << 16
)

var be = binary.BigEndian

type nbtError struct {
	error
}

func pcall(f func()) (rerr error) {
	defer func() {
		switch r := recover().(type) {
		case nbtError:
			rerr = r.error
		case nil:
		default:
			panic(r)
		}
	}()
	f()
	return
}

func chk(err error) {
	if err != nil {
		panic(nbtError{err})
	}
}

// NBTEncoder writes tiles as structure-block NBT: an unnamed root compound with an
// optional DataVersion, the tile size, its palette, its block records and an empty
// entity list, all big-endian.
type NBTEncoder struct {
	DataVersion int32 // omitted when zero
	Compression schemgen.Compression
}

// NewNBTEncoder returns a gzip-compressing encoder, the form the game loads.
func NewNBTEncoder(dataVersion int32) *NBTEncoder {
	return &NBTEncoder{DataVersion: dataVersion, Compression: schemgen.Gzip}
}

func (e *NBTEncoder) Ext() string { return ".nbt" }

func (e *NBTEncoder) Encode(w io.Writer, t *Tile) error {
	switch e.Compression {
	case schemgen.Gzip:
		zw := gzip.NewWriter(w)
		if err := e.write(zw, t); err != nil {
			return err
		}
		return zw.Close()
	case schemgen.Uncompressed:
		return e.write(w, t)
	default:
		var buf bytes.Buffer
		if err := e.write(&buf, t); err != nil {
			return err
		}
		data, err := schemgen.Compress(buf.Bytes(), e.Compression)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
}

func (e *NBTEncoder) write(w io.Writer, t *Tile) error {
	bw := bufio.NewWriter(w)
	err := pcall(func() {
		nw := nbtWriter{bw}
		nw.header(tagCompound, "")
		if e.DataVersion != 0 {
			nw.header(tagInt, "DataVersion")
			nw.int32(e.DataVersion)
		}
		nw.header(tagList, "size")
		nw.intList(t.Size)

		nw.header(tagList, "palette")
		nw.listHeader(tagCompound, t.Palette.Len())
		for _, d := range t.Palette.Entries() {
			nw.header(tagString, "Name")
			nw.string(d.String())
			if d.NumProperties() != 0 {
				nw.header(tagCompound, "Properties")
				for _, p := range d.Properties() {
					nw.header(tagString, p.Key)
					nw.string(p.Value)
				}
				nw.end()
			}
			nw.end()
		}

		nw.header(tagList, "blocks")
		nw.listHeader(tagCompound, len(t.Blocks))
		for _, r := range t.Blocks {
			nw.header(tagInt, "state")
			nw.int32(int32(r.State))
			nw.header(tagList, "pos")
			nw.intList(r.Pos)
			nw.end()
		}

		nw.header(tagList, "entities")
		nw.listHeader(tagEnd, 0)
		nw.end()
	})
	if err != nil {
		return err
	}
	return bw.Flush()
}

type nbtWriter struct {
	w io.Writer
}

func (nw nbtWriter) byte(b byte) {
	_, err := nw.w.Write([]byte{b})
	chk(err)
}

func (nw nbtWriter) int32(v int32) {
	var buf [4]byte
	be.PutUint32(buf[:], uint32(v))
	_, err := nw.w.Write(buf[:])
	chk(err)
}

func (nw nbtWriter) string(s string) {
	if len(s) > math.MaxUint16 {
		chk(fmt.Errorf("string of %d bytes too long for NBT", len(s)))
	}
	var buf [2]byte
	be.PutUint16(buf[:], uint16(len(s)))
	_, err := nw.w.Write(buf[:])
	chk(err)
	_, err = io.WriteString(nw.w, s)
	chk(err)
}

func (nw nbtWriter) header(typ byte, name string) {
	nw.byte(typ)
	nw.string(name)
}

func (nw nbtWriter) end() {
	nw.byte(tagEnd)
}

func (nw nbtWriter) listHeader(elem byte, n int) {
	nw.byte(elem)
	nw.int32(int32(n))
}

func (nw nbtWriter) intList(p schemgen.Point3d) {
	nw.listHeader(tagInt, 3)
	for _, v := range p {
		nw.int32(v)
	}
}

// nbtList is a decoded list payload.
type nbtList struct {
	elem  byte
	items []interface{}
}

type nbtReader struct {
	r *bufio.Reader
}

func (nr nbtReader) byte() byte {
	b, err := nr.r.ReadByte()
	chk(err)
	return b
}

// full reads n bytes in chunks so a forged length fails on a short body before a large
// buffer is allocated.
func (nr nbtReader) full(n int) []byte {
	buf := make([]byte, 0, min(n, readChunk))
	for len(buf) < n {
		k := min(n-len(buf), readChunk)
		buf = append(buf, make([]byte, k)...)
		_, err := io.ReadFull(nr.r, buf[len(buf)-k:])
		chk(err)
	}
	return buf
}

func (nr nbtReader) length() int {
	n := int32(be.Uint32(nr.full(4)))
	if n < 0 || n > maxListLen {
		chk(fmt.Errorf("bad NBT length %d", n))
	}
	return int(n)
}

func (nr nbtReader) string() string {
	n := be.Uint16(nr.full(2))
	return string(nr.full(int(n)))
}

func (nr nbtReader) payload(typ byte, depth int) interface{} {
	switch typ {
	case tagByte:
		return int8(nr.byte())
	case tagShort:
		return int16(be.Uint16(nr.full(2)))
	case tagInt:
		return int32(be.Uint32(nr.full(4)))
	case tagLong:
		return int64(be.Uint64(nr.full(8)))
	case tagFloat:
		return math.Float32frombits(be.Uint32(nr.full(4)))
	case tagDouble:
		return math.Float64frombits(be.Uint64(nr.full(8)))
	case tagByteArray:
		return nr.full(nr.length())
	case tagString:
		return nr.string()
	case tagList, tagCompound:
		if depth >= maxDepth {
			chk(fmt.Errorf("NBT nesting deeper than %d: %w", maxDepth, errBadTile))
		}
		if typ == tagCompound {
			c := make(map[string]interface{})
			for {
				t := nr.byte()
				if t == tagEnd {
					return c
				}
				name := nr.string()
				c[name] = nr.payload(t, depth+1)
			}
		}
		l := nbtList{elem: nr.byte(), items: []interface{}{}}
		n := nr.length()
		for i := 0; i < n; i++ {
			l.items = append(l.items, nr.payload(l.elem, depth+1))
		}
		return l
	case tagIntArray:
		n := nr.length()
		a := []int32{}
		for i := 0; i < n; i++ {
			a = append(a, int32(be.Uint32(nr.full(4))))
		}
		return a
	case tagLongArray:
		n := nr.length()
		a := []int64{}
		for i := 0; i < n; i++ {
			a = append(a, int64(be.Uint64(nr.full(8))))
		}
		return a
	default:
		chk(fmt.Errorf("unknown NBT tag type %d: %w", typ, errBadTile))
		return nil
	}
}

var errBadTile = errors.New("malformed structure tile")

// DecodeNBT reads a structure tile written by NBTEncoder.  Gzip input is detected
// automatically.  The returned tile has no index or origin; the data version is zero if
// the tile did not record one.
func DecodeNBT(r io.Reader) (t *Tile, dataVersion int32, err error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, 0, err
		}
		defer zr.Close()
		br = bufio.NewReader(zr)
	}
	var root map[string]interface{}
	err = pcall(func() {
		nr := nbtReader{br}
		if typ := nr.byte(); typ != tagCompound {
			chk(fmt.Errorf("root tag is type %d, not a compound: %w", typ, errBadTile))
		}
		nr.string()
		root = nr.payload(tagCompound, 0).(map[string]interface{})
	})
	if err != nil {
		return nil, 0, err
	}
	return tileFromNBT(root)
}

// Decode reads a tile written by this encoder's compression.
func (e *NBTEncoder) Decode(r io.Reader) (*Tile, int32, error) {
	if e.Compression == schemgen.Gzip || e.Compression == schemgen.Uncompressed {
		return DecodeNBT(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	if data, err = schemgen.Decompress(data, e.Compression); err != nil {
		return nil, 0, err
	}
	return DecodeNBT(bytes.NewReader(data))
}

func intList(v interface{}, field string) (schemgen.Point3d, error) {
	var p schemgen.Point3d
	l, ok := v.(nbtList)
	if !ok || l.elem != tagInt || len(l.items) != 3 {
		return p, fmt.Errorf("%q is not a list of 3 ints: %w", field, errBadTile)
	}
	for i, item := range l.items {
		p[i] = item.(int32)
	}
	return p, nil
}

func compoundList(root map[string]interface{}, field string) ([]interface{}, error) {
	l, ok := root[field].(nbtList)
	if !ok {
		return nil, fmt.Errorf("missing list %q: %w", field, errBadTile)
	}
	if len(l.items) != 0 && l.elem != tagCompound {
		return nil, fmt.Errorf("%q holds tag type %d, not compounds: %w", field, l.elem, errBadTile)
	}
	return l.items, nil
}

func tileFromNBT(root map[string]interface{}) (*Tile, int32, error) {
	var dataVersion int32
	if v, found := root["DataVersion"]; found {
		dv, ok := v.(int32)
		if !ok {
			return nil, 0, fmt.Errorf("DataVersion is not an int: %w", errBadTile)
		}
		dataVersion = dv
	}
	size, err := intList(root["size"], "size")
	if err != nil {
		return nil, 0, err
	}
	t := &Tile{Size: size, Palette: blocks.NewPalette()}

	entries, err := compoundList(root, "palette")
	if err != nil {
		return nil, 0, err
	}
	// palette indices in the file map to indices in our palette, which always starts with air
	remap := make([]uint32, len(entries))
	for i, e := range entries {
		c := e.(map[string]interface{})
		name, ok := c["Name"].(string)
		if !ok {
			return nil, 0, fmt.Errorf("palette entry %d has no Name: %w", i, errBadTile)
		}
		props := make(map[string]string)
		if pc, found := c["Properties"]; found {
			pm, ok := pc.(map[string]interface{})
			if !ok {
				return nil, 0, fmt.Errorf("palette entry %d has bad Properties: %w", i, errBadTile)
			}
			for k, v := range pm {
				s, ok := v.(string)
				if !ok {
					return nil, 0, fmt.Errorf("palette entry %d property %q is not a string: %w", i, k, errBadTile)
				}
				props[k] = s
			}
		}
		d, err := blocks.Parse(name)
		if err != nil {
			return nil, 0, err
		}
		if d, err = blocks.FromMap(d.Namespace(), d.Name(), props); err != nil {
			return nil, 0, err
		}
		remap[i], _ = t.Palette.Index(d)
	}

	records, err := compoundList(root, "blocks")
	if err != nil {
		return nil, 0, err
	}
	t.Blocks = make([]Record, 0, len(records))
	for i, r := range records {
		c := r.(map[string]interface{})
		state, ok := c["state"].(int32)
		if !ok || state < 0 || int(state) >= len(remap) {
			return nil, 0, fmt.Errorf("block %d has bad state: %w", i, errBadTile)
		}
		pos, err := intList(c["pos"], "pos")
		if err != nil {
			return nil, 0, err
		}
		t.Blocks = append(t.Blocks, Record{State: remap[state], Pos: pos})
	}
	if _, err := compoundList(root, "entities"); err != nil {
		return nil, 0, err
	}
	return t, dataVersion, nil
}
