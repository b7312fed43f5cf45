// Package blocks defines block descriptors, the identity of an element placed at a voxel,
// and palettes that map descriptors to compact indices.
package blocks

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/janelia-flyem/schemgen/schemgen"
)

// DefaultNamespace is used when a block spec omits its namespace.
const DefaultNamespace = "minecraft"

// Air is the empty/default descriptor.  Voxels without a stored descriptor are Air.
var Air = newDescriptor(DefaultNamespace, "air", nil)

// Property is a single block state property.
type Property struct {
	Key   string
	Value string
}

// Descriptor identifies a placed block by namespace, base name and an optional set of
// properties.  Descriptors are immutable; the property list is kept sorted by key so
// equal descriptors always have equal canonical keys.
type Descriptor struct {
	namespace string
	name      string
	props     []Property

	id string // length-prefixed namespace, name and properties
}

// New returns a descriptor.  If a property key is repeated, the last value wins.  The
// namespace may not contain a colon and neither namespace nor name may be empty.
func New(namespace, name string, props ...Property) (Descriptor, error) {
	if len(props) == 0 {
		return FromMap(namespace, name, nil)
	}
	byKey := make(map[string]string, len(props))
	for _, p := range props {
		byKey[p.Key] = p.Value
	}
	return FromMap(namespace, name, byKey)
}

// FromMap returns a descriptor with the properties in the given map.
func FromMap(namespace, name string, props map[string]string) (Descriptor, error) {
	if namespace == "" || name == "" {
		return Descriptor{}, fmt.Errorf("block needs a namespace and a name, got %q and %q: %w", namespace, name, schemgen.ErrInvalidArgument)
	}
	if strings.IndexByte(namespace, ':') >= 0 {
		return Descriptor{}, fmt.Errorf("block namespace %q contains ':': %w", namespace, schemgen.ErrInvalidArgument)
	}
	var sorted []Property
	if len(props) != 0 {
		sorted = make([]Property, 0, len(props))
		for k, v := range props {
			sorted = append(sorted, Property{k, v})
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	}
	return newDescriptor(namespace, name, sorted), nil
}

// newDescriptor takes ownership of props, which must be sorted by key.
func newDescriptor(namespace, name string, props []Property) Descriptor {
	b := make([]byte, 0, len(namespace)+len(name)+8)
	b = appendField(b, namespace)
	b = appendField(b, name)
	b = binary.AppendUvarint(b, uint64(len(props)))
	for _, p := range props {
		b = appendField(b, p.Key)
		b = appendField(b, p.Value)
	}
	return Descriptor{namespace: namespace, name: name, props: props, id: string(b)}
}

func appendField(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

// Parse returns a descriptor from a block spec of the form "namespace:name" with an
// optional property list, e.g., "minecraft:oak_log[axis=y]".  A spec without a
// namespace uses DefaultNamespace.
func Parse(spec string) (Descriptor, error) {
	spec = strings.TrimSpace(spec)
	var propStr string
	if i := strings.IndexByte(spec, '['); i >= 0 {
		if !strings.HasSuffix(spec, "]") {
			return Descriptor{}, fmt.Errorf("block spec %q has unterminated property list: %w", spec, schemgen.ErrInvalidArgument)
		}
		propStr = spec[i+1 : len(spec)-1]
		spec = spec[:i]
	}
	namespace, name := DefaultNamespace, spec
	if parts := strings.SplitN(spec, ":", 2); len(parts) == 2 {
		namespace, name = parts[0], parts[1]
	}
	if namespace == "" || name == "" {
		return Descriptor{}, fmt.Errorf("bad block spec %q: %w", spec, schemgen.ErrInvalidArgument)
	}
	if propStr == "" {
		return New(namespace, name)
	}
	var props []Property
	for _, kv := range strings.Split(propStr, ",") {
		elems := strings.SplitN(kv, "=", 2)
		if len(elems) != 2 || elems[0] == "" {
			return Descriptor{}, fmt.Errorf("bad property %q in block spec: %w", kv, schemgen.ErrInvalidArgument)
		}
		props = append(props, Property{strings.TrimSpace(elems[0]), strings.TrimSpace(elems[1])})
	}
	return New(namespace, name, props...)
}

// MustParse is like Parse but panics on a bad spec.  Use for constant specs.
func MustParse(spec string) Descriptor {
	d, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Descriptor) Namespace() string { return d.namespace }

func (d Descriptor) Name() string { return d.name }

// Properties returns a copy of the sorted property list.
func (d Descriptor) Properties() []Property {
	if len(d.props) == 0 {
		return nil
	}
	props := make([]Property, len(d.props))
	copy(props, d.props)
	return props
}

// Property returns the value of a property.
func (d Descriptor) Property(key string) (string, bool) {
	for _, p := range d.props {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// NumProperties returns the number of properties.
func (d Descriptor) NumProperties() int {
	return len(d.props)
}

// String returns the namespaced name "namespace:name" without properties.
func (d Descriptor) String() string {
	return d.namespace + ":" + d.name
}

// Key returns the readable full identity, e.g., "minecraft:oak_log[axis=y]".  Property
// values are not escaped, so use ID to tell descriptors apart.
func (d Descriptor) Key() string {
	if len(d.props) == 0 {
		return d.String()
	}
	var sb strings.Builder
	sb.WriteString(d.String())
	sb.WriteByte('[')
	for i, p := range d.props {
		if i != 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Key)
		sb.WriteByte('=')
		sb.WriteString(p.Value)
	}
	sb.WriteByte(']')
	return sb.String()
}

// ID returns an opaque string that is equal for two descriptors exactly when they are
// Equal.  It is suitable as a map key.
func (d Descriptor) ID() string {
	return d.id
}

// Equal returns true if namespace, name and all properties are equal.
func (d Descriptor) Equal(d2 Descriptor) bool {
	return d.id == d2.id
}

// IsAir returns true for the empty/default descriptor.
func (d Descriptor) IsAir() bool {
	return d.Equal(Air)
}

// IsZero returns true for an uninitialized Descriptor.
func (d Descriptor) IsZero() bool {
	return d.namespace == "" && d.name == ""
}
