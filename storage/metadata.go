package storage

import (
	"fmt"
	"time"

	"github.com/blang/semver"
	"github.com/tinylib/msgp/msgp"

	"github.com/janelia-flyem/schemgen/schemgen"
)

// Metadata describes the structure held by a container.
type Metadata struct {
	UUID      string
	Platform  string
	Version   semver.Version
	Size      schemgen.Point3d
	NumVoxels int64
	Created   time.Time
}

func (m *Metadata) String() string {
	return fmt.Sprintf("structure %s (%s %s), size %s, %d voxels, written %s",
		m.UUID, m.Platform, m.Version, m.Size, m.NumVoxels, m.Created.Format(time.RFC3339))
}

// MarshalMsg implements msgp.Marshaler
func (m *Metadata) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, m.Msgsize())
	o = msgp.AppendMapHeader(o, 6)
	o = msgp.AppendString(o, "UUID")
	o = msgp.AppendString(o, m.UUID)
	o = msgp.AppendString(o, "Platform")
	o = msgp.AppendString(o, m.Platform)
	o = msgp.AppendString(o, "Version")
	o = msgp.AppendString(o, m.Version.String())
	o = msgp.AppendString(o, "Size")
	o = msgp.AppendArrayHeader(o, 3)
	for _, v := range m.Size {
		o = msgp.AppendInt32(o, v)
	}
	o = msgp.AppendString(o, "NumVoxels")
	o = msgp.AppendInt64(o, m.NumVoxels)
	o = msgp.AppendString(o, "Created")
	o = msgp.AppendTime(o, m.Created)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (m *Metadata) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "UUID":
			m.UUID, bts, err = msgp.ReadStringBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "UUID")
				return
			}
		case "Platform":
			m.Platform, bts, err = msgp.ReadStringBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Platform")
				return
			}
		case "Version":
			var zb0002 string
			zb0002, bts, err = msgp.ReadStringBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Version")
				return
			}
			m.Version, err = semver.Parse(zb0002)
			if err != nil {
				err = msgp.WrapError(err, "Version")
				return
			}
		case "Size":
			var zb0003 uint32
			zb0003, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Size")
				return
			}
			if zb0003 != 3 {
				err = msgp.ArrayError{Wanted: 3, Got: zb0003}
				return
			}
			for i := range m.Size {
				m.Size[i], bts, err = msgp.ReadInt32Bytes(bts)
				if err != nil {
					err = msgp.WrapError(err, "Size", i)
					return
				}
			}
		case "NumVoxels":
			m.NumVoxels, bts, err = msgp.ReadInt64Bytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "NumVoxels")
				return
			}
		case "Created":
			m.Created, bts, err = msgp.ReadTimeBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Created")
				return
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (m *Metadata) Msgsize() (s int) {
	s = 1 + 5 + msgp.StringPrefixSize + len(m.UUID) + 9 + msgp.StringPrefixSize + len(m.Platform) +
		8 + msgp.StringPrefixSize + len(m.Version.String()) + 5 + msgp.ArrayHeaderSize + 3*msgp.Int32Size +
		10 + msgp.Int64Size + 8 + msgp.TimeSize
	return
}
