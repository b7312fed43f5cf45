package blocks

import (
	"errors"
	"testing"

	"github.com/janelia-flyem/schemgen/schemgen"
)

func mustNew(t *testing.T, namespace, name string, props ...Property) Descriptor {
	d, err := New(namespace, name, props...)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestDescriptorEquality(t *testing.T) {
	a := mustNew(t, "minecraft", "oak_log", Property{"axis", "y"}, Property{"age", "1"})
	b, err := FromMap("minecraft", "oak_log", map[string]string{"age": "1", "axis": "y"})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Errorf("expected %s == %s", a.Key(), b.Key())
	}
	if a.Key() != "minecraft:oak_log[age=1,axis=y]" {
		t.Errorf("bad canonical key %q", a.Key())
	}
	if a.String() != "minecraft:oak_log" {
		t.Errorf("bad namespaced name %q", a.String())
	}
	c := mustNew(t, "minecraft", "oak_log", Property{"axis", "x"}, Property{"age", "1"})
	if a.Equal(c) {
		t.Errorf("descriptors with different properties should differ")
	}
	if a.Equal(mustNew(t, "minecraft", "oak_log")) {
		t.Errorf("property-less descriptor should differ")
	}
	if !Air.IsAir() || a.IsAir() {
		t.Errorf("bad IsAir")
	}
}

func TestDescriptorImmutable(t *testing.T) {
	a := mustNew(t, "minecraft", "stone", Property{"variant", "granite"})
	props := a.Properties()
	props[0].Value = "diorite"
	if v, _ := a.Property("variant"); v != "granite" {
		t.Errorf("descriptor was modified through Properties(): %s", a.Key())
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		spec string
		key  string
	}{
		{"minecraft:stone", "minecraft:stone"},
		{"dirt", "minecraft:dirt"},
		{"create:shaft[axis=z]", "create:shaft[axis=z]"},
		{"minecraft:oak_stairs[half=bottom, facing=north]", "minecraft:oak_stairs[facing=north,half=bottom]"},
	}
	for _, tc := range tests {
		d, err := Parse(tc.spec)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.spec, err)
		}
		if d.Key() != tc.key {
			t.Errorf("Parse(%q) = %q, expected %q", tc.spec, d.Key(), tc.key)
		}
	}
	for _, bad := range []string{"", ":stone", "minecraft:", "minecraft:stone[axis", "minecraft:stone[axis]"} {
		if _, err := Parse(bad); !errors.Is(err, schemgen.ErrInvalidArgument) {
			t.Errorf("Parse(%q) expected invalid argument, got %v", bad, err)
		}
	}
}

func TestDescriptorIdentityUnambiguous(t *testing.T) {
	// both of these read "minecraft:sign[text=1,x=2]"
	a := mustNew(t, "minecraft", "sign", Property{"text", "1,x=2"})
	b := mustNew(t, "minecraft", "sign", Property{"text", "1"}, Property{"x", "2"})
	if a.Key() != b.Key() {
		t.Fatalf("expected identical readable keys, got %q and %q", a.Key(), b.Key())
	}
	if a.Equal(b) || a.ID() == b.ID() {
		t.Errorf("descriptors with different properties share an identity")
	}
	p := NewPalette()
	ia, _ := p.Index(a)
	ib, added := p.Index(b)
	if ia == ib || !added {
		t.Errorf("palette merged distinct descriptors: %d, %d (added %t)", ia, ib, added)
	}
	if !p.At(ia).Equal(a) || !p.At(ib).Equal(b) {
		t.Errorf("palette returned the wrong descriptors")
	}

	c := mustNew(t, "a", "b:c")
	if _, err := New("a:b", "c"); !errors.Is(err, schemgen.ErrInvalidArgument) {
		t.Errorf("expected invalid argument for namespace with a colon, got %v", err)
	}
	if _, err := FromMap("a:b", "c", nil); !errors.Is(err, schemgen.ErrInvalidArgument) {
		t.Errorf("expected invalid argument for namespace with a colon, got %v", err)
	}
	if d, err := Parse("a:b:c"); err != nil || !d.Equal(c) {
		t.Errorf("Parse(a:b:c) = %s, %v; expected namespace a and name b:c", d.Key(), err)
	}
	if _, err := New("", "stone"); !errors.Is(err, schemgen.ErrInvalidArgument) {
		t.Errorf("expected invalid argument for empty namespace, got %v", err)
	}
}

func TestPalette(t *testing.T) {
	p := NewPalette()
	if p.Len() != 1 || !p.At(0).IsAir() {
		t.Fatalf("palette should be seeded with air")
	}
	stone := MustParse("minecraft:stone")
	dirt := MustParse("minecraft:dirt")
	if idx, added := p.Index(stone); idx != 1 || !added {
		t.Errorf("expected stone at new index 1, got %d (added %t)", idx, added)
	}
	if idx, added := p.Index(dirt); idx != 2 || !added {
		t.Errorf("expected dirt at new index 2, got %d (added %t)", idx, added)
	}
	if idx, added := p.Index(MustParse("stone")); idx != 1 || added {
		t.Errorf("expected existing stone index 1, got %d (added %t)", idx, added)
	}
	if idx, added := p.Index(Air); idx != 0 || added {
		t.Errorf("air should stay at index 0, got %d", idx)
	}
	entries := p.Entries()
	if len(entries) != 3 || !entries[1].Equal(stone) || !entries[2].Equal(dirt) {
		t.Errorf("bad palette order: %v", entries)
	}
}

func TestDescriptorMsgpack(t *testing.T) {
	for _, d := range []Descriptor{Air, MustParse("create:shaft[axis=z,powered=true]"), mustNew(t, "minecraft", "sign", Property{"text", "1,x=2"})} {
		b, err := d.MarshalMsg(nil)
		if err != nil {
			t.Fatalf("MarshalMsg(%s): %v", d.Key(), err)
		}
		if len(b) > d.Msgsize() {
			t.Errorf("Msgsize %d smaller than encoding %d", d.Msgsize(), len(b))
		}
		var got Descriptor
		rest, err := got.UnmarshalMsg(b)
		if err != nil {
			t.Fatalf("UnmarshalMsg(%s): %v", d.Key(), err)
		}
		if len(rest) != 0 {
			t.Errorf("unexpected %d trailing bytes", len(rest))
		}
		if !got.Equal(d) {
			t.Errorf("msgpack round trip changed %s into %s", d.Key(), got.Key())
		}
	}
}
