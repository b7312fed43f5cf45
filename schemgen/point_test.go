package schemgen

import (
	"errors"
	"testing"
)

func TestPoint3d(t *testing.T) {
	a := Point3d{10, 21, 837821}
	b := Point3d{78312, 200, 40123}

	if got := a.Add(b); got != (Point3d{78322, 221, 877944}) {
		t.Errorf("bad Add: %s", got)
	}
	if got := b.Sub(a); got != (Point3d{78302, 179, -797698}) {
		t.Errorf("bad Sub: %s", got)
	}
	if a.String() != "(10,21,837821)" {
		t.Errorf("bad String: %s", a)
	}

	m := a
	m.SetMaximum(b)
	if m != (Point3d{78312, 200, 837821}) {
		t.Errorf("bad SetMaximum: %s", m)
	}
	m = a
	m.SetMinimum(b)
	if m != (Point3d{10, 21, 40123}) {
		t.Errorf("bad SetMinimum: %s", m)
	}
	if (Point3d{2, 3, 4}).Prod() != 24 {
		t.Errorf("bad Prod")
	}
}

func TestPointChunking(t *testing.T) {
	size := Point3d{48, 48, 48}
	p := Point3d{50, 47, 96}
	if c := p.Chunk(size); c != (ChunkPoint3d{1, 0, 2}) {
		t.Errorf("bad chunk for %s: %s", p, c)
	}
	if r := p.PointInChunk(size); r != (Point3d{2, 47, 0}) {
		t.Errorf("bad point in chunk for %s: %s", p, r)
	}
	c := ChunkPoint3d{1, 0, 2}
	if c.MinPoint(size) != (Point3d{48, 0, 96}) {
		t.Errorf("bad chunk extents for %s", c)
	}
	if !p.Contains(Point3d{48, 0, 96}, Point3d{96, 48, 144}) {
		t.Errorf("expected %s within its chunk", p)
	}
	if p.Contains(Point3d{0, 0, 0}, Point3d{50, 48, 144}) {
		t.Errorf("half-open box should exclude its max face")
	}
}

func TestStringToPoint3d(t *testing.T) {
	p, err := StringToPoint3d("10, 20,30", ",")
	if err != nil {
		t.Fatal(err)
	}
	if p != (Point3d{10, 20, 30}) {
		t.Errorf("bad parse: %s", p)
	}
	if _, err := StringToPoint3d("1,2", ","); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestCommand(t *testing.T) {
	cmd := Command{"raw", "vol.raw", "shape=10,10,10", "block=minecraft:stone", "extra"}
	if cmd.Name() != "raw" {
		t.Errorf("bad name %q", cmd.Name())
	}
	if v, found := cmd.Setting(KeyShape); !found || v != "10,10,10" {
		t.Errorf("bad shape setting %q", v)
	}
	if _, found := cmd.Setting(KeyOutput); found {
		t.Errorf("unexpected out setting")
	}
	var filename string
	overflow := cmd.CommandArgs(&filename)
	if filename != "vol.raw" {
		t.Errorf("bad positional argument %q", filename)
	}
	if len(overflow) != 1 || overflow[0] != "extra" {
		t.Errorf("bad overflow %v", overflow)
	}
}
