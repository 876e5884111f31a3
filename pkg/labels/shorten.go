package labels

import (
	"path/filepath"
	"strings"
)

// Ellipsis marks elided path segments in shortened descriptions.
const Ellipsis = "…"

// ShortenPaths reduces each path to its shortest trailing-unique fragment
// within the set, eliding shared segments with an ellipsis. Paths that stay
// ambiguous at every fragment length are returned unchanged.
func ShortenPaths(paths []string) []string {
	sep := string(filepath.Separator)
	shortened := make([]string, len(paths))

	match := false
	for i := range paths {
		original := paths[i]
		if original == "" {
			shortened[i] = "." + sep
			continue
		}

		match = true

		// Peel a root or home prefix so it can be re-attached verbatim.
		prefix := ""
		trimmed := original
		if strings.HasPrefix(trimmed, sep) {
			prefix = trimmed[:1]
			trimmed = trimmed[1:]
		} else if strings.HasPrefix(trimmed, "~") {
			if len(trimmed) >= 2 {
				prefix = trimmed[:2]
				trimmed = trimmed[2:]
			} else {
				prefix = trimmed
				trimmed = ""
			}
		}

		segments := strings.Split(trimmed, sep)
		for subpathLength := 1; match && subpathLength <= len(segments); subpathLength++ {
			for start := len(segments) - subpathLength; match && start >= 0; start-- {
				match = false
				subpath := strings.Join(segments[start:start+subpathLength], sep)

				for other := 0; !match && other < len(paths); other++ {
					if other != i && paths[other] != "" && strings.Contains(paths[other], subpath) {
						// A non-suffix fragment is always ambiguous; a suffix
						// fragment only collides with another path ending in
						// the same directory-delimited suffix.
						isSubpathEnding := start+subpathLength == len(segments)
						subpathWithSep := subpath
						if start > 0 && strings.Contains(paths[other], sep) {
							subpathWithSep = sep + subpath
						}
						isOtherPathEnding := strings.HasSuffix(paths[other], subpathWithSep)
						match = !isSubpathEnding || isOtherPathEnding
					}
				}

				if !match {
					result := ""

					// Preserve a disk drive or root prefix.
					if strings.HasSuffix(segments[0], ":") || prefix != "" {
						if start == 1 {
							start = 0
							subpathLength++
							subpath = segments[0] + sep + subpath
						}
						if start > 0 {
							result = segments[0] + sep
						}
						result = prefix + result
					}

					if start > 0 {
						result += Ellipsis + sep
					}
					result += subpath
					if start+subpathLength < len(segments) {
						result += sep + Ellipsis
					}
					shortened[i] = result
				}
			}
		}
		if match {
			shortened[i] = original
		}
	}
	return shortened
}
