package idea

// Status is the advisory lifecycle marker of an idea.
type Status string

// StatusNew is assigned to every freshly accepted idea.
const StatusNew Status = "new"

// Record is one accepted idea in the store.
// Records are never mutated after creation, except for backfilling a missing
// ProjectSlug on stores written before slugs were tracked.
type Record struct {
	// Date is the ISO-8601 day the idea was accepted
	Date string `json:"date"`

	// Idea is the raw idea text as generated
	Idea string `json:"idea"`

	// ProjectSlug binds the idea to its project directory (may be absent in older stores)
	ProjectSlug string `json:"project_slug,omitempty"`

	// Status is advisory only
	Status Status `json:"status,omitempty"`
}

// Slug returns the bound project slug and whether one is present.
func (r Record) Slug() (string, bool) {
	return r.ProjectSlug, r.ProjectSlug != ""
}

// IsDuplicate reports whether candidate's normalized text equals the
// normalized text of any record, regardless of date.
func IsDuplicate(records []Record, candidate string) bool {
	target := Normalize(candidate)
	for _, r := range records {
		if n := Normalize(r.Idea); n != "" && n == target {
			return true
		}
	}
	return false
}

// KnownSlugs returns the set of slugs bound in records.
func KnownSlugs(records []Record) map[string]struct{} {
	known := make(map[string]struct{}, len(records))
	for _, r := range records {
		if slug, ok := r.Slug(); ok {
			known[slug] = struct{}{}
		}
	}
	return known
}

// Append returns a new slice holding records followed by accepted, in order.
// The input slice is not modified.
func Append(records, accepted []Record) []Record {
	out := make([]Record, 0, len(records)+len(accepted))
	out = append(out, records...)
	return append(out, accepted...)
}
