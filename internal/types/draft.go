package types

import "encoding/json"

// PageStatus is the publication state of a page draft.
type PageStatus string

const (
	StatusDraft     PageStatus = "draft"
	StatusPublished PageStatus = "published"
	StatusScheduled PageStatus = "scheduled"
	StatusArchived  PageStatus = "archived"
)

// PageSettings holds SEO metadata and free-form custom key/value pairs.
type PageSettings struct {
	MetaTitle       string            `json:"metaTitle,omitempty"`
	MetaDescription string            `json:"metaDescription,omitempty"`
	Custom          map[string]string `json:"custom,omitempty"`
}

// PageDraft is the aggregate persisted unit of the editor. It is mutated
// in-memory by the editor controller and written back via explicit
// save/publish commands.
type PageDraft struct {
	Title        string         `json:"title"`
	Slug         string         `json:"slug"`
	Status       PageStatus     `json:"status"`
	Content      ContentTree    `json:"blocks"`
	Settings     PageSettings   `json:"settings"`
	EntityFields map[string]any `json:"-"`
}

// Clone returns a deep copy of the draft, used for dirty-state snapshots.
func (d PageDraft) Clone() PageDraft {
	out := d
	out.Content = d.Content.Clone()
	if d.Settings.Custom != nil {
		out.Settings.Custom = make(map[string]string, len(d.Settings.Custom))
		for k, v := range d.Settings.Custom {
			out.Settings.Custom[k] = v
		}
	}
	if d.EntityFields != nil {
		out.EntityFields = deepCopyBag(d.EntityFields)
	}
	return out
}

// Equal reports structural equality with another draft. Dirty state is
// derived by comparing the live draft against the last loaded/saved
// snapshot; JSON serialization is the canonical structural form.
func (d PageDraft) Equal(other PageDraft) bool {
	a, err := json.Marshal(d)
	if err != nil {
		return false
	}
	b, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

// Pattern is the stored unit a pattern reference points at: a titled,
// reusable content tree. Stored pattern content is an ordinary tree of
// block instances; patterns do not nest.
type Pattern struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Blocks ContentTree `json:"blocks"`
}
