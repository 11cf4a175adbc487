// Package version implements OdooVersion parsing and the multi-probe
// version/edition detector described in the specification's Version Prober
// component.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Edition identifies the backend's product edition.
type Edition string

const (
	EditionCommunity  Edition = "community"
	EditionEnterprise Edition = "enterprise"
	EditionUnknown    Edition = "unknown"
)

// OdooVersion is the backend's self-description. Immutable for a
// connection's lifetime once constructed by the Version Prober.
type OdooVersion struct {
	Major      int
	Minor      int
	Micro      int
	Level      string // e.g. "final", "candidate", "alpha"
	Serial     int
	FullString string
	Edition    Edition
}

// versionStringRe matches "N.N", "N.N-datestamp", "N.Ne" (trailing e =
// enterprise), "saas-N.N", "saas~N.N".
var versionStringRe = regexp.MustCompile(`^(?:saas[-~])?(\d+)\.(\d+)(e)?(?:-\S+)?$`)

// ParseTuple parses the tuple form [major, minor, micro, level, serial] as
// returned by the legacy XML-RPC and JSON-RPC common.version() calls.
func ParseTuple(tuple []interface{}) (*OdooVersion, error) {
	if len(tuple) < 2 {
		return nil, fmt.Errorf("version tuple too short: %v", tuple)
	}
	v := &OdooVersion{Level: "final"}

	major, err := toInt(tuple[0])
	if err != nil {
		return nil, fmt.Errorf("version tuple major: %w", err)
	}
	v.Major = major

	minor, err := toInt(tuple[1])
	if err != nil {
		return nil, fmt.Errorf("version tuple minor: %w", err)
	}
	v.Minor = minor

	if len(tuple) > 2 {
		if micro, err := toInt(tuple[2]); err == nil {
			v.Micro = micro
		}
	}
	if len(tuple) > 3 {
		if level, ok := tuple[3].(string); ok {
			v.Level = level
		}
	}
	if len(tuple) > 4 {
		if serial, err := toInt(tuple[4]); err == nil {
			v.Serial = serial
		}
	}

	v.FullString = fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Micro)
	v.Edition = EditionUnknown
	return v, nil
}

// ParseString parses one of the accepted string forms: "N.N", "N.N-datestamp",
// "N.Ne" (trailing e marks enterprise), "saas-N.N", "saas~N.N".
func ParseString(s string) (*OdooVersion, error) {
	s = strings.TrimSpace(s)
	m := versionStringRe.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("unrecognized version string: %q", s)
	}

	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])

	v := &OdooVersion{
		Major:      major,
		Minor:      minor,
		Level:      "final",
		FullString: s,
	}
	if m[3] == "e" {
		v.Edition = EditionEnterprise
	} else {
		v.Edition = EditionUnknown
	}
	return v, nil
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

// String returns FullString ("unknown" for a nil version): the input as
// given for versions parsed from a string, "major.minor.micro" otherwise.
func (v *OdooVersion) String() string {
	if v == nil {
		return "unknown"
	}
	return v.FullString
}

// Fallback is used when all three probes fail (§4.2): assume version 14,
// community edition, and let the caller select Legacy-XML with a warning.
func Fallback() *OdooVersion {
	return &OdooVersion{
		Major:      14,
		Minor:      0,
		Micro:      0,
		Level:      "final",
		FullString: "14.0.0",
		Edition:    EditionCommunity,
	}
}
