package view

import "github.com/google/uuid"

// State is the phase of the edit-session machine.
type State int

const (
	Idle State = iota
	EditingNew
	EditingExisting
)

func (s State) String() string {
	switch s {
	case EditingNew:
		return "editing-new"
	case EditingExisting:
		return "editing-existing"
	default:
		return "idle"
	}
}

// Session ties one edit surface to the record it may mutate. The token
// is the only identity the surface ever holds; record ids stay on the
// synchronizer side, so a surface can never smuggle a transient
// placeholder id into the store. Once a session ends its token is
// worthless and a late submit is rejected.
type Session struct {
	Token    uuid.UUID
	State    State
	RecordID int64
}
