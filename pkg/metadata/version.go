// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"cmp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/showrefs/showrefs/pkg/modref"
)

// CompareVersions orders two version tokens. Semantic versions are compared
// with semver precedence; anything else (four-part assembly versions such as
// "4.0.0.0" included) falls back to a dotted numeric comparison in which
// trailing zero segments are insignificant.
func CompareVersions(a, b modref.Version) int {
	va, errA := semver.StrictNewVersion(strings.TrimPrefix(string(a), "v"))
	vb, errB := semver.StrictNewVersion(strings.TrimPrefix(string(b), "v"))
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return compareDotted(string(a), string(b))
}

// VersionsMatch reports whether a module declaring actual satisfies a
// reference requesting requested. An unspecified request matches anything.
func VersionsMatch(requested, actual modref.Version) bool {
	if requested.IsZero() {
		return true
	}
	return CompareVersions(requested, actual) == 0
}

func compareDotted(a, b string) int {
	pa := trimZeros(strings.Split(strings.TrimPrefix(a, "v"), "."))
	pb := trimZeros(strings.Split(strings.TrimPrefix(b, "v"), "."))
	for i := 0; i < max(len(pa), len(pb)); i++ {
		var sa, sb string
		if i < len(pa) {
			sa = pa[i]
		}
		if i < len(pb) {
			sb = pb[i]
		}
		na, errA := strconv.ParseUint(orZero(sa), 10, 64)
		nb, errB := strconv.ParseUint(orZero(sb), 10, 64)
		if errA == nil && errB == nil {
			if c := cmp.Compare(na, nb); c != 0 {
				return c
			}
			continue
		}
		if c := strings.Compare(sa, sb); c != 0 {
			return c
		}
	}
	return 0
}

func trimZeros(parts []string) []string {
	for len(parts) > 1 && (parts[len(parts)-1] == "0" || parts[len(parts)-1] == "") {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
