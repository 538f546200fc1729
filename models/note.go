package models

// Note is one sticky note. Content holds the serialized rich-text
// document exactly as the block editor saved it; the persistence layer
// never looks inside. The date range is optional: an undated note just
// sits on the board until it is dragged onto the calendar.
type Note struct {
	ID        int64  `json:"id,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Color     string `json:"color"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

func (n *Note) RecordID() int64 {
	return n.ID
}

func (n *Note) SetRecordID(id int64) {
	n.ID = id
}
