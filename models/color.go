package models

// Color labels one palette color. The color value itself is the record
// key, so saving an already-known color just renames it.
type Color struct {
	Color string `json:"color" validate:"required,iscolor"`
	Name  string `json:"name"`
}
