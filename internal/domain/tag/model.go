package tag

import "time"

// Tag is a classification label shown on patient cards.
type Tag struct {
	ID        string    `db:"id" json:"id"`
	Text      string    `db:"text" json:"text"`
	Color     string    `db:"color" json:"color"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultTagID is assigned to newly created patients.
const DefaultTagID = "normal"

// FallbackTag is the display tag used when a patient's tag id no longer
// resolves. Reads never fail on a dangling tag reference.
func FallbackTag() *Tag {
	return &Tag{ID: "unknown", Text: "unknown", Color: "gray"}
}
