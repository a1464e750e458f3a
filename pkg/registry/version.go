package registry

import "strconv"

// CompareVersions implements the original's DeferClient numeric,
// digit-group-by-digit-group version comparator (SPEC_FULL §C.2): each
// dot-separated group is compared as an integer, not lexicographically
// (so "4.10.0" > "4.9.0"). Groups present in one version but not the
// other are treated as zero. Returns -1, 0, or 1.
func CompareVersions(a, b string) int {
	ag, bg := splitVersion(a), splitVersion(b)
	n := len(ag)
	if len(bg) > n {
		n = len(bg)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(ag) {
			av = ag[i]
		}
		if i < len(bg) {
			bv = bg[i]
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// VersionLess reports whether a < b under CompareVersions.
func VersionLess(a, b string) bool {
	return CompareVersions(a, b) < 0
}

func splitVersion(v string) []int {
	var groups []int
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == '.' {
			if i > start {
				n, err := strconv.Atoi(v[start:i])
				if err != nil {
					n = 0
				}
				groups = append(groups, n)
			}
			start = i + 1
		}
	}
	return groups
}
