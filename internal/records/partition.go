package records

// Group is the ordered set of records sharing one language tag.
// Records point into the slice passed to Partition, so classifying a group
// updates the caller's records in place.
type Group struct {
	Language string
	Records  []*TextRecord
}

// Partition groups records by language in a single pass. Groups appear in order of
// their language's first occurrence and keep input order within each group.
func Partition(recs []TextRecord) []Group {
	var groups []Group
	index := make(map[string]int)

	for i := range recs {
		lang := recs[i].Language
		pos, ok := index[lang]
		if !ok {
			pos = len(groups)
			index[lang] = pos
			groups = append(groups, Group{Language: lang})
		}
		groups[pos].Records = append(groups[pos].Records, &recs[i])
	}

	return groups
}

// Languages returns the language tag of each group in group order.
func Languages(groups []Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Language
	}
	return out
}
