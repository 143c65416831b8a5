package types

// FieldType enumerates the editable property kinds the form engine knows how
// to render and round-trip.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldRichText FieldType = "richtext"
	FieldURL      FieldType = "url"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldImages   FieldType = "images"
	FieldMedia    FieldType = "media"
	FieldArray    FieldType = "array"
	FieldToggle   FieldType = "toggle"
	FieldRadio    FieldType = "radio"
	FieldColor    FieldType = "color"
	FieldDate     FieldType = "date"
	FieldTime     FieldType = "time"
	FieldDateTime FieldType = "datetime"
)

// FieldTab places a field on one of the editor's three tabs.
type FieldTab string

const (
	TabContent  FieldTab = "content"
	TabDesign   FieldTab = "design"
	TabAdvanced FieldTab = "advanced"
)

// FieldOption is one choice of a select or radio field.
type FieldOption struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// FieldDefinition describes one editable property of a block or page.
// Fields sharing a Group render together under a collapsible section;
// Tab defaults to content when unspecified.
type FieldDefinition struct {
	Name     string        `json:"name"     yaml:"name"`
	Type     FieldType     `json:"type"     yaml:"type"`
	Label    string        `json:"label,omitempty"    yaml:"label,omitempty"`
	Tab      FieldTab      `json:"tab,omitempty"      yaml:"tab,omitempty"`
	Group    string        `json:"group,omitempty"    yaml:"group,omitempty"`
	Required bool          `json:"required,omitempty" yaml:"required,omitempty"`
	Default  any           `json:"default,omitempty"  yaml:"default,omitempty"`
	Options  []FieldOption `json:"options,omitempty"  yaml:"options,omitempty"`
	Min      *float64      `json:"min,omitempty"      yaml:"min,omitempty"`
	Max      *float64      `json:"max,omitempty"      yaml:"max,omitempty"`
	Step     *float64      `json:"step,omitempty"     yaml:"step,omitempty"`
	// Fields describes the sub-record shape of array-typed fields.
	Fields []FieldDefinition `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// EffectiveTab returns the field's tab, defaulting to content.
func (f FieldDefinition) EffectiveTab() FieldTab {
	if f.Tab == "" {
		return TabContent
	}
	return f.Tab
}

// FieldSchema is an ordered set of field definitions.
type FieldSchema []FieldDefinition

// FieldGroup is one renderable section of a schema: either the ungrouped
// leading section (Name == "") or a named collapsible group.
type FieldGroup struct {
	Name   string
	Fields []FieldDefinition
}

// Groups partitions the schema for rendering: ungrouped fields first, then
// named groups in first-seen order.
func (s FieldSchema) Groups() []FieldGroup {
	var ungrouped []FieldDefinition
	order := make([]string, 0)
	byName := make(map[string][]FieldDefinition)

	for _, f := range s {
		if f.Group == "" {
			ungrouped = append(ungrouped, f)
			continue
		}
		if _, seen := byName[f.Group]; !seen {
			order = append(order, f.Group)
		}
		byName[f.Group] = append(byName[f.Group], f)
	}

	groups := make([]FieldGroup, 0, len(order)+1)
	if len(ungrouped) > 0 {
		groups = append(groups, FieldGroup{Fields: ungrouped})
	}
	for _, name := range order {
		groups = append(groups, FieldGroup{Name: name, Fields: byName[name]})
	}
	return groups
}

// Field returns the definition with the given name, if present.
func (s FieldSchema) Field(name string) (FieldDefinition, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}
