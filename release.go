package selfupdate

import "strings"

// Asset is a single downloadable file attached to a Release. Assets are
// never mutated after construction; selection returns a copy.
type Asset struct {
	Name        string
	URL         string
	Size        int64 // 0 when the backend does not report a size
	ContentType string
}

// Release is a named, versioned publication built from a single backend
// response. Version is the normalized tag (no leading "v" marker).
type Release struct {
	TagName string
	Version string
	Name    string
	Body    string
	Date    string
	Assets  []Asset
}

// HasAsset reports whether any asset name contains target as a substring.
func (r *Release) HasAsset(target string) bool {
	for i := range r.Assets {
		if strings.Contains(r.Assets[i].Name, target) {
			return true
		}
	}
	return false
}

// AssetFor returns the first asset whose name contains target as a
// substring. When binName is non-empty the name must also contain it;
// on Windows the ".exe"-suffixed binary name is tried first so assets
// carrying the executable extension win over bare matches. Ties are
// broken by first occurrence in the release's asset ordering.
//
// Matching is substring containment, not exact-segment comparison, so
// target strings that are prefixes of one another (e.g. "arm" and
// "armv7") can collide; callers should pick unambiguous targets.
func (r *Release) AssetFor(target, binName string) (Asset, bool) {
	var names []string
	if binName != "" && exeSuffix != "" {
		names = append(names, strings.TrimSuffix(binName, exeSuffix)+exeSuffix)
	}
	names = append(names, binName)

	for _, bn := range names {
		for i := range r.Assets {
			a := r.Assets[i]
			if !strings.Contains(a.Name, target) {
				continue
			}
			if bn != "" && !strings.Contains(a.Name, bn) {
				continue
			}
			return a, true
		}
	}
	return Asset{}, false
}

// findAsset returns the asset with the exact given name, if present.
func (r *Release) findAsset(name string) (Asset, bool) {
	for i := range r.Assets {
		if r.Assets[i].Name == name {
			return r.Assets[i], true
		}
	}
	return Asset{}, false
}
