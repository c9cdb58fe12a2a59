package stage

import "time"

// Stage is a kanban column on the patient board. IDs are canonical named
// strings ("stage1".."stage5" for the seeded set) rather than numbers.
type Stage struct {
	ID         string    `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	ColorClass string    `db:"color_class" json:"color_class"`
	Position   int       `db:"position" json:"position"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultStageID is where newly created patients land.
const DefaultStageID = "stage1"

// DefaultColorClass is used when a submitted color cannot be mapped.
const DefaultColorClass = "slate"

// hexColorClasses maps the hex codes the board UI historically sent to
// named CSS classes.
var hexColorClasses = map[string]string{
	"#14b8a6": "teal",
	"#f59e0b": "amber",
	"#3b82f6": "blue",
	"#8b5cf6": "violet",
	"#22c55e": "green",
	"#ef4444": "red",
	"#64748b": "slate",
}

// ColorClassForHex resolves a hex color code to a named class. Values that
// already look like a named class pass through; unknown hexes get the
// default class.
func ColorClassForHex(color string) string {
	if color == "" {
		return DefaultColorClass
	}
	if color[0] != '#' {
		return color
	}
	if class, ok := hexColorClasses[color]; ok {
		return class
	}
	return DefaultColorClass
}
