// Package changeset parses the untrusted change-set a content generator
// returns for a project iteration.
package changeset

// Action is the requested file operation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of create, update, delete.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Writes reports whether a requires file content.
func (a Action) Writes() bool {
	return a == ActionCreate || a == ActionUpdate
}

// ChangeRequest is one requested operation. Fields hold whatever the generator
// sent; nothing here has been validated against the filesystem.
type ChangeRequest struct {
	// Path is the requested project-relative path ("" when absent or not a string)
	Path string `json:"path"`

	// Action is the raw requested action, possibly outside the known set
	Action Action `json:"action"`

	// Content is nil when absent or not a JSON string
	Content *string `json:"content,omitempty"`
}

// ChangeSet is a parsed generator response.
type ChangeSet struct {
	Summary string          `json:"summary"`
	Changes []ChangeRequest `json:"changes"`
}
