package structure

import (
	"fmt"

	"github.com/blang/semver"

	"github.com/janelia-flyem/schemgen/schemgen"
)

const DefaultPlatform = "java"

// DefaultVersion is the game version tagged on structures when none is configured.
var DefaultVersion = semver.MustParse("1.21.8")

// ParseVersion parses a game version tag.  Missing minor or patch numbers are zero, so
// "1.20" is 1.20.0.
func ParseVersion(s string) (semver.Version, error) {
	v, err := semver.ParseTolerant(s)
	if err != nil {
		return semver.Version{}, fmt.Errorf("bad version %q: %v: %w", s, err, schemgen.ErrInvalidArgument)
	}
	return v, nil
}
