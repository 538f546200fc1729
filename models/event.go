package models

// Event is one calendar entry. Start and End carry the widget's
// datetime-local strings (e.g. "2024-01-01T09:00"); the store does not
// enforce End >= Start, that stays with the caller.
type Event struct {
	ID          int64  `json:"id,omitempty"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"desc"`
	Start       string `json:"start" validate:"required"`
	End         string `json:"end" validate:"required"`
	Color       string `json:"color" validate:"required,hexcolor"`
}

func (e *Event) RecordID() int64 {
	return e.ID
}

func (e *Event) SetRecordID(id int64) {
	e.ID = id
}
