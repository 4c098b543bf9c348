package gateway

import (
	"fmt"
	"regexp"
	"strconv"
)

// Version is a gateway firmware version.  The decoder branches on it for
// the tags whose wire width changed across firmware releases.
type Version struct {
	Major int
	Minor int
	Patch int
}

var versionRe = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion extracts a version from a firmware banner such as
// "GW1000B_V1.6.8".  An unrecognized banner yields the zero version, which
// decodes with the oldest layout.
func ParseVersion(banner string) (Version, error) {
	m := versionRe.FindStringSubmatch(banner)
	if m == nil {
		return Version{}, fmt.Errorf("no version in firmware banner %q", banner)
	}
	v := Version{}
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		v.Patch, _ = strconv.Atoi(m[3])
	}
	return v, nil
}

// AtLeast reports whether v is at or above major.minor.patch.
func (v Version) AtLeast(major, minor, patch int) bool {
	if v.Major != major {
		return v.Major > major
	}
	if v.Minor != minor {
		return v.Minor > minor
	}
	return v.Patch >= patch
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
