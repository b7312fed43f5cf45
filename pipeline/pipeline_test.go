package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/janelia-flyem/schemgen/blocks"
	"github.com/janelia-flyem/schemgen/schemgen"
	"github.com/janelia-flyem/schemgen/sdf"
	"github.com/janelia-flyem/schemgen/tiles"
	"github.com/janelia-flyem/schemgen/volume"

	_ "github.com/janelia-flyem/schemgen/storage/badger"
)

// slab returns a (depth, row, column) volume with ones in [lo, hi) on every axis.
func slab(t *testing.T, shape [3]int, lo, hi [3]int) *volume.Array {
	a, err := volume.NewArray(shape[0], shape[1], shape[2])
	if err != nil {
		t.Fatal(err)
	}
	a.Fill(1, lo, hi)
	return a
}

func TestAddVolume(t *testing.T) {
	p, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	a := slab(t, [3]int{2, 3, 4}, [3]int{0, 0, 0}, [3]int{2, 3, 4})
	if err := p.AddVolume(a, "minecraft:stone", nil); err != nil {
		t.Fatal(err)
	}
	top := slab(t, [3]int{2, 3, 4}, [3]int{0, 2, 0}, [3]int{2, 3, 4})
	if err := p.AddVolume(top, "oak_log[axis=y]", nil); err != nil {
		t.Fatal(err)
	}
	s := p.Structure()
	if s.NumVoxels() != 24 {
		t.Errorf("expected 24 voxels, got %d", s.NumVoxels())
	}
	if size := s.VolumeSize(); size != (schemgen.Point3d{4, 2, 3}) {
		t.Errorf("expected size (4,2,3), got %s", size)
	}
	if b := s.Get(schemgen.Point3d{0, 0, 2}); b.Key() != "minecraft:oak_log[axis=y]" {
		t.Errorf("later layer should overwrite, got %s", b.Key())
	}
	if b := s.Get(schemgen.Point3d{0, 0, 1}); b.Key() != "minecraft:stone" {
		t.Errorf("expected stone below the top row, got %s", b.Key())
	}
	if err := p.AddVolume(a, "bad[", nil); !errors.Is(err, schemgen.ErrInvalidArgument) {
		t.Errorf("expected invalid argument for bad block spec, got %v", err)
	}
	summary := p.Summary()
	if !strings.Contains(summary, "24 voxels") || !strings.Contains(summary, "minecraft:oak_log[axis=y]") {
		t.Errorf("unexpected summary: %s", summary)
	}
}

func TestAddMesh(t *testing.T) {
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	box := sdf.Box(r3.Vec{}, r3.Vec{X: 4, Y: 4, Z: 4})
	if err := p.AddMesh(context.Background(), box, "minecraft:stone"); err != nil {
		t.Fatal(err)
	}
	if n := p.Structure().NumVoxels(); n != 125 {
		t.Errorf("expected 125 voxels from filled cube, got %d", n)
	}
	opts := sdf.Options{Spacing: sdf.NewSpacing(1), Edge: sdf.Center}
	if err := p.AddMeshWithOptions(context.Background(), box, "minecraft:glass", opts); err != nil {
		t.Fatal(err)
	}
	if b := p.Structure().Get(schemgen.Point3d{2, 2, 2}); b.Key() != "minecraft:stone" {
		t.Errorf("interior should keep stone, got %s", b.Key())
	}
	if b := p.Structure().Get(schemgen.Point3d{0, 2, 2}); b.Key() != "minecraft:glass" {
		t.Errorf("surface should be glass, got %s", b.Key())
	}
	if err := p.AddMesh(context.Background(), &sdf.Mesh{}, "minecraft:stone"); !errors.Is(err, schemgen.ErrInvalidArgument) {
		t.Errorf("expected invalid argument for empty mesh, got %v", err)
	}
}

func TestAddMeshRegion(t *testing.T) {
	box := sdf.Box(r3.Vec{}, r3.Vec{X: 4, Y: 4, Z: 4})
	clipped := writeConfig(t, "[voxelize]\norigin = [1.0, \"auto\", \"auto\"]\n")
	c, err := LoadConfig(clipped)
	if err != nil {
		t.Fatal(err)
	}
	p, err := New(c)
	if err != nil {
		t.Fatal(err)
	}
	err = p.AddMesh(context.Background(), box, "minecraft:stone")
	var clip *sdf.ClipError
	if !errors.As(err, &clip) || !errors.Is(err, schemgen.ErrOutOfRange) {
		t.Fatalf("expected clip error for origin inside the mesh, got %v", err)
	}
	if p.Structure().NumVoxels() != 0 {
		t.Errorf("failed mesh should add nothing, got %d voxels", p.Structure().NumVoxels())
	}

	ignored := writeConfig(t, "[voxelize]\norigin = [1.0, \"auto\", \"auto\"]\nignore_clip = true\n")
	if c, err = LoadConfig(ignored); err != nil {
		t.Fatal(err)
	}
	if p, err = New(c); err != nil {
		t.Fatal(err)
	}
	if err := p.AddMesh(context.Background(), box, "minecraft:stone"); err != nil {
		t.Fatalf("ignore_clip should allow a clipped region: %v", err)
	}
	if n := p.Structure().NumVoxels(); n != 100 {
		t.Errorf("expected 100 voxels from the clipped cube, got %d", n)
	}
}

func TestSaveAndImport(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store["house"] = storeConfig{
		"engine": "badger",
		"path":   filepath.Join(t.TempDir(), "house"),
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	a := slab(t, [3]int{3, 3, 3}, [3]int{1, 0, 1}, [3]int{3, 2, 3})
	if err := p.AddVolume(a, "minecraft:oak_planks", nil); err != nil {
		t.Fatal(err)
	}
	m, err := p.Save("house")
	if err != nil {
		t.Fatal(err)
	}
	if m.NumVoxels != 8 || m.Size != p.Structure().VolumeSize() {
		t.Errorf("bad metadata %s", m)
	}

	p2, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	n, err := p2.Import("house")
	if err != nil {
		t.Fatal(err)
	}
	if n != 8 {
		t.Errorf("expected 8 imported voxels, got %d", n)
	}
	var got, want []string
	collect := func(keys *[]string) func(schemgen.Point3d, blocks.Descriptor) error {
		return func(pt schemgen.Point3d, b blocks.Descriptor) error {
			*keys = append(*keys, pt.String()+b.Key())
			return nil
		}
	}
	if err := p.Structure().ForEach(collect(&want)); err != nil {
		t.Fatal(err)
	}
	if err := p2.Structure().ForEach(collect(&got)); err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	sort.Strings(want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("imported voxels mismatch (-want +got):\n%s", diff)
	}
	if _, err := p2.Import("garage"); !errors.Is(err, schemgen.ErrNotFound) {
		t.Errorf("expected not found for unknown store, got %v", err)
	}
}

func TestWriteTiles(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tiles.MaxSize = 2
	cfg.Output.URL = "mem://"
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	a := slab(t, [3]int{3, 3, 3}, [3]int{0, 0, 0}, [3]int{3, 3, 3})
	if err := p.AddVolume(a, "minecraft:stone", nil); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	sink, err := p.OpenSink(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	stats, err := p.WriteTiles(ctx, sink, "")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Tiles != 8 || stats.Voxels != 27 {
		t.Errorf("unexpected stats %+v", stats)
	}
	names, err := sink.List(ctx, DefaultBaseName)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 8 {
		t.Fatalf("expected 8 tiles, got %v", names)
	}
	data, err := sink.Get(ctx, "structure_1_1_1.nbt")
	if err != nil {
		t.Fatal(err)
	}
	tile, _, err := tiles.DecodeNBT(strings.NewReader(string(data)))
	if err != nil {
		t.Fatal(err)
	}
	if tile.Size != (schemgen.Point3d{1, 1, 1}) || len(tile.Blocks) != 1 {
		t.Errorf("unexpected corner tile %+v", tile)
	}
}

func TestWriteSplit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tiles.Format = FormatMsgpack
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	low := slab(t, [3]int{2, 2, 2}, [3]int{0, 0, 0}, [3]int{2, 1, 2})
	high := slab(t, [3]int{2, 2, 2}, [3]int{0, 1, 0}, [3]int{2, 2, 2})
	if err := p.AddVolume(low, "minecraft:stone", nil); err != nil {
		t.Fatal(err)
	}
	if err := p.AddVolume(high, "minecraft:oak_log[axis=x]", nil); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	sink, err := tiles.OpenSink(ctx, "mem://")
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	stats, err := p.WriteSplit(ctx, sink, "house")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 || stats["minecraft:stone"].Voxels != 4 || stats["minecraft:oak_log"].Voxels != 4 {
		t.Errorf("unexpected split stats %+v", stats)
	}
	names, err := sink.List(ctx, "house_")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"house_minecraft_oak_log_0_0_0.msgpack",
		"house_minecraft_stone_0_0_0.msgpack",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("split tile names mismatch (-want +got):\n%s", diff)
	}
	if got := SplitBaseName("x", "ns:name"); got != "x_ns_name" {
		t.Errorf("bad split base name %q", got)
	}
}
