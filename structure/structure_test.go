package structure

import (
	"errors"
	"testing"

	"github.com/blang/semver"
	"github.com/google/go-cmp/cmp"

	"github.com/janelia-flyem/schemgen/blocks"
	"github.com/janelia-flyem/schemgen/schemgen"
	"github.com/janelia-flyem/schemgen/volume"
)

var (
	stone = blocks.MustParse("minecraft:stone")
	dirt  = blocks.MustParse("minecraft:dirt")
	logX  = blocks.MustParse("minecraft:oak_log[axis=x]")
	logY  = blocks.MustParse("minecraft:oak_log[axis=y]")
)

func TestEmptyStructure(t *testing.T) {
	s := New("", DefaultVersion)
	if s.Platform() != DefaultPlatform {
		t.Errorf("expected default platform, got %q", s.Platform())
	}
	if _, ok := s.Bounds(); ok {
		t.Errorf("empty structure should have no bounds")
	}
	if sz := s.VolumeSize(); sz != (schemgen.Point3d{}) {
		t.Errorf("expected zero volume size, got %s", sz)
	}
	if !s.Get(schemgen.Point3d{1, 2, 3}).IsAir() {
		t.Errorf("expected air for absent voxel")
	}
	if len(s.SplitByBlock()) != 0 {
		t.Errorf("expected no partitions")
	}
}

func TestSetGetBounds(t *testing.T) {
	s := New(DefaultPlatform, DefaultVersion)
	pts := []schemgen.Point3d{{3, 0, 1}, {0, 7, 2}, {1, 1, 5}}
	for _, p := range pts {
		if err := s.Set(p, stone); err != nil {
			t.Fatal(err)
		}
	}
	if sz := s.VolumeSize(); sz != (schemgen.Point3d{4, 8, 6}) {
		t.Errorf("expected volume size (4,8,6), got %s", sz)
	}
	// bounds are minimal: every axis maximum is attained by some voxel
	max, _ := s.Bounds()
	for axis := 0; axis < 3; axis++ {
		attained := false
		s.ForEach(func(p schemgen.Point3d, b blocks.Descriptor) error {
			if p[axis] == max[axis] {
				attained = true
			}
			return nil
		})
		if !attained {
			t.Errorf("bound on axis %d not attained", axis)
		}
	}
	if err := s.Set(schemgen.Point3d{3, 0, 1}, dirt); err != nil {
		t.Fatal(err)
	}
	if got := s.Get(schemgen.Point3d{3, 0, 1}); !got.Equal(dirt) {
		t.Errorf("overwrite failed, got %s", got)
	}
	if s.NumVoxels() != 3 {
		t.Errorf("expected 3 voxels, got %d", s.NumVoxels())
	}
	var order []schemgen.Point3d
	s.ForEach(func(p schemgen.Point3d, b blocks.Descriptor) error {
		order = append(order, p)
		return nil
	})
	if diff := cmp.Diff(pts, order); diff != "" {
		t.Errorf("insertion order not kept (-want +got):\n%s", diff)
	}
}

func TestClearWithAir(t *testing.T) {
	s := New(DefaultPlatform, DefaultVersion)
	s.Set(schemgen.Point3d{9, 9, 9}, stone)
	s.Set(schemgen.Point3d{1, 1, 1}, stone)
	s.Set(schemgen.Point3d{9, 9, 9}, blocks.Air)
	if s.NumVoxels() != 1 {
		t.Errorf("expected 1 voxel after clearing, got %d", s.NumVoxels())
	}
	if !s.Get(schemgen.Point3d{9, 9, 9}).IsAir() {
		t.Errorf("cleared voxel should read as air")
	}
	if sz := s.VolumeSize(); sz != (schemgen.Point3d{10, 10, 10}) {
		t.Errorf("bounds must not shrink, got size %s", sz)
	}
	s.Set(schemgen.Point3d{20, 0, 0}, blocks.Air)
	if sz := s.VolumeSize(); sz != (schemgen.Point3d{10, 10, 10}) {
		t.Errorf("air on an absent voxel must not grow bounds, got size %s", sz)
	}
	s.Set(schemgen.Point3d{9, 9, 9}, dirt)
	if s.NumVoxels() != 2 || !s.Get(schemgen.Point3d{9, 9, 9}).Equal(dirt) {
		t.Errorf("re-setting a cleared voxel failed")
	}
}

func TestSetOutOfRange(t *testing.T) {
	s := New(DefaultPlatform, DefaultVersion)
	bad := []schemgen.Point3d{{-1, 0, 0}, {0, MaxCoord, 0}, {0, 0, MaxCoord + 5}}
	for _, p := range bad {
		if err := s.Set(p, stone); !errors.Is(err, schemgen.ErrInvalidArgument) {
			t.Errorf("expected invalid argument for %s, got %v", p, err)
		}
	}
	if err := s.Set(schemgen.Point3d{MaxCoord - 1, MaxCoord - 1, MaxCoord - 1}, stone); err != nil {
		t.Errorf("largest coordinate should be storable: %v", err)
	}
	if !s.Get(schemgen.Point3d{MaxCoord - 1, MaxCoord - 1, MaxCoord - 1}).Equal(stone) {
		t.Errorf("packed key round trip failed at maximum coordinate")
	}
	if err := s.Set(schemgen.Point3d{}, blocks.Descriptor{}); !errors.Is(err, schemgen.ErrInvalidArgument) {
		t.Errorf("expected error for zero descriptor, got %v", err)
	}
}

func TestAddLayer(t *testing.T) {
	mask := volume.NewMask(schemgen.Point3d{10, 10, 10})
	mask.SetBox(schemgen.Point3d{1, 1, 1}, schemgen.Point3d{5, 5, 5})
	s := New(DefaultPlatform, DefaultVersion)
	if err := s.AddLayerSpec(mask, "minecraft:stone"); err != nil {
		t.Fatal(err)
	}
	if s.NumVoxels() != 64 {
		t.Errorf("expected 64 voxels, got %d", s.NumVoxels())
	}
	if sz := s.VolumeSize(); sz != (schemgen.Point3d{5, 5, 5}) {
		t.Errorf("expected size (5,5,5), got %s", sz)
	}
	if err := s.AddLayerSpec(mask, "minecraft:stone[bad"); err == nil {
		t.Errorf("expected parse error")
	}
	if err := s.AddLayer(nil, stone); !errors.Is(err, schemgen.ErrInvalidArgument) {
		t.Errorf("expected error for nil mask, got %v", err)
	}
	var n int
	s.ForEachInRegion(schemgen.Point3d{0, 0, 0}, schemgen.Point3d{3, 3, 3}, func(p schemgen.Point3d, b blocks.Descriptor) error {
		n++
		return nil
	})
	if n != 8 {
		t.Errorf("expected 8 voxels in region, got %d", n)
	}
}

func TestSplitByBlock(t *testing.T) {
	s := New("bedrock", semver.MustParse("1.20.0"))
	s.Set(schemgen.Point3d{0, 0, 0}, stone)
	s.Set(schemgen.Point3d{1, 0, 0}, dirt)
	s.Set(schemgen.Point3d{2, 0, 0}, logX)
	s.Set(schemgen.Point3d{3, 4, 0}, logY)
	s.Set(schemgen.Point3d{0, 0, 6}, stone)

	parts := s.SplitByBlock()
	if len(parts) != 3 {
		t.Fatalf("expected 3 partitions, got %d", len(parts))
	}
	total := 0
	for name, part := range parts {
		if part.Platform() != "bedrock" || !part.Version().Equals(semver.MustParse("1.20.0")) {
			t.Errorf("partition %s lost platform/version", name)
		}
		total += part.NumVoxels()
		part.ForEach(func(p schemgen.Point3d, b blocks.Descriptor) error {
			if b.String() != name {
				t.Errorf("voxel %s with %s in partition %s", p, b, name)
			}
			if !s.Get(p).Equal(b) {
				t.Errorf("voxel %s differs from original", p)
			}
			return nil
		})
	}
	if total != s.NumVoxels() {
		t.Errorf("partition voxel count %d != %d", total, s.NumVoxels())
	}
	logs := parts["minecraft:oak_log"]
	if logs == nil || logs.NumVoxels() != 2 {
		t.Fatalf("expected oak logs with both axes in one partition")
	}
	if !logs.Get(schemgen.Point3d{2, 0, 0}).Equal(logX) {
		t.Errorf("partition dropped properties")
	}
	if sz := parts["minecraft:stone"].VolumeSize(); sz != (schemgen.Point3d{1, 1, 7}) {
		t.Errorf("unexpected stone partition size %s", sz)
	}
	want := []blocks.Descriptor{stone, dirt, logX, logY}
	if diff := cmp.Diff(want, s.Blocks()); diff != "" {
		t.Errorf("unexpected distinct blocks (-want +got):\n%s", diff)
	}
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("1.21.8")
	if err != nil || !v.Equals(DefaultVersion) {
		t.Errorf("bad parse: %v %v", v, err)
	}
	if v.String() != "1.21.8" {
		t.Errorf("bad version string %s", v)
	}
	if v, err := ParseVersion("1.20"); err != nil || !v.Equals(semver.MustParse("1.20.0")) {
		t.Errorf("bad two part parse: %v %v", v, err)
	}
	for _, bad := range []string{"", "1.x", "a.b", "1.2.3.4", "1.-2"} {
		if _, err := ParseVersion(bad); !errors.Is(err, schemgen.ErrInvalidArgument) {
			t.Errorf("expected error for %q", bad)
		}
	}
}
