package blocks

import (
	"fmt"
	"strings"

	"github.com/tinylib/msgp/msgp"
)

// The msgpack form of a Descriptor mirrors a palette entry: a map with a "Name" string
// holding "namespace:name" and, only if there are properties, a "Properties" map.

// MarshalMsg implements msgp.Marshaler
func (d Descriptor) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, d.Msgsize())
	if len(d.props) == 0 {
		o = msgp.AppendMapHeader(o, 1)
	} else {
		o = msgp.AppendMapHeader(o, 2)
	}
	o = msgp.AppendString(o, "Name")
	o = msgp.AppendString(o, d.String())
	if len(d.props) != 0 {
		o = msgp.AppendString(o, "Properties")
		o = msgp.AppendMapHeader(o, uint32(len(d.props)))
		for _, p := range d.props {
			o = msgp.AppendString(o, p.Key)
			o = msgp.AppendString(o, p.Value)
		}
	}
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (d *Descriptor) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field string
	var isz uint32
	isz, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return
	}
	var name string
	var props map[string]string
	for ; isz > 0; isz-- {
		field, bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return
		}
		switch field {
		case "Name":
			name, bts, err = msgp.ReadStringBytes(bts)
			if err != nil {
				return
			}
		case "Properties":
			var psz uint32
			psz, bts, err = msgp.ReadMapHeaderBytes(bts)
			if err != nil {
				return
			}
			props = make(map[string]string, psz)
			for ; psz > 0; psz-- {
				var k, v string
				if k, bts, err = msgp.ReadStringBytes(bts); err != nil {
					return
				}
				if v, bts, err = msgp.ReadStringBytes(bts); err != nil {
					return
				}
				props[k] = v
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				return
			}
		}
	}
	parts := strings.SplitN(name, ":", 2)
	if len(parts) != 2 {
		err = fmt.Errorf("bad descriptor name %q in msgpack data", name)
		return
	}
	if *d, err = FromMap(parts[0], parts[1], props); err != nil {
		return
	}
	o = bts
	return
}

func (d Descriptor) Msgsize() (s int) {
	s = msgp.MapHeaderSize + msgp.StringPrefixSize + 4 + msgp.StringPrefixSize + len(d.namespace) + 1 + len(d.name)
	if len(d.props) != 0 {
		s += msgp.StringPrefixSize + 10 + msgp.MapHeaderSize
		for _, p := range d.props {
			s += msgp.StringPrefixSize + len(p.Key) + msgp.StringPrefixSize + len(p.Value)
		}
	}
	return
}
