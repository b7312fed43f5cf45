package tiles

import (
	"fmt"
	"io"

	"github.com/blang/semver"
	"github.com/tinylib/msgp/msgp"

	"github.com/janelia-flyem/schemgen/blocks"
	"github.com/janelia-flyem/schemgen/schemgen"
)

// TileFormatVersion is written into msgpack tiles.  Decoders accept any tile with the
// same major version.
var TileFormatVersion = semver.MustParse("1.0.0")

// MsgpackEncoder writes the same record as NBTEncoder as a msgpack map, for consumers
// that do not speak NBT.
type MsgpackEncoder struct {
	Compression schemgen.Compression
}

func (e *MsgpackEncoder) Ext() string { return ".msgpack" }

func (e *MsgpackEncoder) Encode(w io.Writer, t *Tile) error {
	o, err := appendTile(nil, t)
	if err != nil {
		return err
	}
	data, err := schemgen.Compress(o, e.Compression)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func appendPoint(o []byte, p schemgen.Point3d) []byte {
	o = msgp.AppendArrayHeader(o, 3)
	for _, v := range p {
		o = msgp.AppendInt32(o, v)
	}
	return o
}

func appendTile(o []byte, t *Tile) ([]byte, error) {
	o = msgp.AppendMapHeader(o, 6)
	o = msgp.AppendString(o, "version")
	o = msgp.AppendString(o, TileFormatVersion.String())
	o = msgp.AppendString(o, "index")
	o = msgp.AppendArrayHeader(o, 3)
	for _, v := range t.Index {
		o = msgp.AppendInt32(o, v)
	}
	o = msgp.AppendString(o, "size")
	o = appendPoint(o, t.Size)

	o = msgp.AppendString(o, "palette")
	o = msgp.AppendArrayHeader(o, uint32(t.Palette.Len()))
	var err error
	for _, d := range t.Palette.Entries() {
		if o, err = d.MarshalMsg(o); err != nil {
			return nil, err
		}
	}

	o = msgp.AppendString(o, "blocks")
	o = msgp.AppendArrayHeader(o, uint32(len(t.Blocks)))
	for _, r := range t.Blocks {
		o = msgp.AppendMapHeader(o, 2)
		o = msgp.AppendString(o, "state")
		o = msgp.AppendUint32(o, r.State)
		o = msgp.AppendString(o, "pos")
		o = appendPoint(o, r.Pos)
	}

	o = msgp.AppendString(o, "entities")
	o = msgp.AppendArrayHeader(o, 0)
	return o, nil
}

// Decode reads a tile written by this encoder.
func (e *MsgpackEncoder) Decode(r io.Reader) (*Tile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if data, err = schemgen.Decompress(data, e.Compression); err != nil {
		return nil, err
	}
	return DecodeMsgpack(data)
}

func readPoint(bts []byte) (p schemgen.Point3d, o []byte, err error) {
	var sz uint32
	if sz, bts, err = msgp.ReadArrayHeaderBytes(bts); err != nil {
		return
	}
	if sz != 3 {
		err = fmt.Errorf("point has %d elements: %w", sz, errBadTile)
		return
	}
	for i := range p {
		if p[i], bts, err = msgp.ReadInt32Bytes(bts); err != nil {
			return
		}
	}
	o = bts
	return
}

// DecodeMsgpack reads an uncompressed msgpack tile.
func DecodeMsgpack(bts []byte) (*Tile, error) {
	t := &Tile{Palette: blocks.NewPalette()}
	var remap []uint32
	isz, bts, err := msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return nil, err
	}
	var field string
	for ; isz > 0; isz-- {
		if field, bts, err = msgp.ReadStringBytes(bts); err != nil {
			return nil, err
		}
		switch field {
		case "version":
			var vstr string
			if vstr, bts, err = msgp.ReadStringBytes(bts); err != nil {
				return nil, err
			}
			v, err := semver.Parse(vstr)
			if err != nil {
				return nil, fmt.Errorf("bad tile format version %q: %w", vstr, errBadTile)
			}
			if v.Major != TileFormatVersion.Major {
				return nil, fmt.Errorf("tile format %s incompatible with %s: %w", v, TileFormatVersion, errBadTile)
			}
		case "index":
			var p schemgen.Point3d
			if p, bts, err = readPoint(bts); err != nil {
				return nil, err
			}
			t.Index = schemgen.ChunkPoint3d(p)
		case "size":
			if t.Size, bts, err = readPoint(bts); err != nil {
				return nil, err
			}
		case "palette":
			var n uint32
			if n, bts, err = msgp.ReadArrayHeaderBytes(bts); err != nil {
				return nil, err
			}
			remap = make([]uint32, n)
			for i := range remap {
				var d blocks.Descriptor
				if bts, err = d.UnmarshalMsg(bts); err != nil {
					return nil, err
				}
				remap[i], _ = t.Palette.Index(d)
			}
		case "blocks":
			var n uint32
			if n, bts, err = msgp.ReadArrayHeaderBytes(bts); err != nil {
				return nil, err
			}
			t.Blocks = make([]Record, n)
			for i := range t.Blocks {
				var rsz uint32
				if rsz, bts, err = msgp.ReadMapHeaderBytes(bts); err != nil {
					return nil, err
				}
				for ; rsz > 0; rsz-- {
					var rfield string
					if rfield, bts, err = msgp.ReadStringBytes(bts); err != nil {
						return nil, err
					}
					switch rfield {
					case "state":
						t.Blocks[i].State, bts, err = msgp.ReadUint32Bytes(bts)
					case "pos":
						t.Blocks[i].Pos, bts, err = readPoint(bts)
					default:
						bts, err = msgp.Skip(bts)
					}
					if err != nil {
						return nil, err
					}
				}
			}
		default:
			if bts, err = msgp.Skip(bts); err != nil {
				return nil, err
			}
		}
	}
	for i, r := range t.Blocks {
		if int(r.State) >= len(remap) {
			return nil, fmt.Errorf("block %d references palette entry %d of %d: %w", i, r.State, len(remap), errBadTile)
		}
		t.Blocks[i].State = remap[r.State]
	}
	return t, nil
}
