package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/blang/semver"

	"github.com/janelia-flyem/schemgen/schemgen"
)

func TestConfig(t *testing.T) {
	c := Config{"path": "/tmp/x", "inmemory": true, "threshold": int64(100), "count": 3, "bad": 1.5}
	if s, found, err := c.GetString("path"); err != nil || !found || s != "/tmp/x" {
		t.Errorf("bad string setting: %q %t %v", s, found, err)
	}
	if _, found, err := c.GetString("missing"); err != nil || found {
		t.Errorf("missing setting should not be found")
	}
	if b, found, err := c.GetBool("inmemory"); err != nil || !found || !b {
		t.Errorf("bad bool setting")
	}
	if i, _, err := c.GetInt("threshold"); err != nil || i != 100 {
		t.Errorf("bad int64 setting: %d %v", i, err)
	}
	if i, _, err := c.GetInt("count"); err != nil || i != 3 {
		t.Errorf("bad int setting: %d %v", i, err)
	}
	if _, _, err := c.GetInt("bad"); !errors.Is(err, schemgen.ErrInvalidArgument) {
		t.Errorf("expected error for float int setting")
	}
	if _, _, err := c.GetBool("path"); !errors.Is(err, schemgen.ErrInvalidArgument) {
		t.Errorf("expected error for string bool setting")
	}
	if _, _, err := c.GetString("count"); !errors.Is(err, schemgen.ErrInvalidArgument) {
		t.Errorf("expected error for int string setting")
	}
}

type nullEngine struct{}

func (nullEngine) String() string            { return "null [1.0.0]" }
func (nullEngine) GetName() string           { return "null" }
func (nullEngine) GetDescription() string    { return "discards everything" }
func (nullEngine) GetSemVer() semver.Version { return semver.MustParse("1.0.0") }
func (nullEngine) NewContainer(StoreConfig) (Container, bool, error) {
	return nil, false, errors.New("null engine has no containers")
}

func TestRegisterEngine(t *testing.T) {
	RegisterEngine(nullEngine{})
	if GetEngine("null") == nil {
		t.Fatalf("registered engine not found")
	}
	if GetEngine("nonexistent") != nil {
		t.Errorf("unexpected engine")
	}
	if EnginesAvailable() == "" {
		t.Errorf("expected available engines")
	}
	if _, _, err := Open(StoreConfig{Engine: "null"}); err == nil {
		t.Errorf("expected error from null engine")
	}
}

func TestMetadataMsgpack(t *testing.T) {
	m := &Metadata{
		UUID:      "abc123",
		Platform:  "bedrock",
		Version:   semver.MustParse("1.21.8"),
		Size:      schemgen.Point3d{100, 64, 3},
		NumVoxels: 12345,
		Created:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	buf, err := m.MarshalMsg(nil)
	if err != nil {
		t.Fatal(err)
	}
	var got Metadata
	left, err := got.UnmarshalMsg(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("%d bytes left after unmarshal", len(left))
	}
	if got.UUID != m.UUID || got.Platform != m.Platform || !got.Version.Equals(m.Version) ||
		got.Size != m.Size || got.NumVoxels != m.NumVoxels || !got.Created.Equal(m.Created) {
		t.Errorf("metadata round trip: expected %s, got %s", m, &got)
	}
	if len(buf) > m.Msgsize() {
		t.Errorf("Msgsize %d smaller than encoding %d", m.Msgsize(), len(buf))
	}
}
