package matcher

import (
	"github.com/spigell/talent-agent/internal/directory"
)

// Excluded reports whether the name matches any exclusion entry. Names and entries are compared
// accent-insensitively, either as whole names or by any shared token.
func Excluded(name string, exclude []string) bool {
	fn := Fold(name)
	nameTokens := tokens(name)
	for _, e := range exclude {
		fe := Fold(e)
		if fe == "" {
			continue
		}
		if fe == fn {
			return true
		}
		for _, et := range tokens(e) {
			for _, nt := range nameTokens {
				if et == nt {
					return true
				}
			}
		}
	}
	return false
}

// FilterExcluded splits candidates into those kept and those removed by the exclusion list.
func FilterExcluded(candidates []directory.Candidate, exclude []string) (kept, removed []directory.Candidate) {
	kept = make([]directory.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if len(exclude) > 0 && Excluded(c.Name, exclude) {
			removed = append(removed, c)
			continue
		}
		kept = append(kept, c)
	}
	return kept, removed
}

// FilterExcludedReferences drops references whose name is in the exclusion list.
func FilterExcludedReferences(refs []directory.Reference, exclude []string) []directory.Reference {
	if len(exclude) == 0 {
		return refs
	}
	kept := make([]directory.Reference, 0, len(refs))
	for _, r := range refs {
		if !Excluded(r.Name, exclude) {
			kept = append(kept, r)
		}
	}
	return kept
}
