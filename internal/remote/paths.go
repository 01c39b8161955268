package remote

import (
	"fmt"
	"strings"

	"github.com/asavelyev/notesync/models"
)

// Remote object layout. One object per item plus three shared singletons.
const (
	itemsRoot      = "items"
	TombstonesPath = "tombstones"
	StatusPath     = "status"
	ConflictsDir   = "conflicts"
)

// ItemPath returns the object path for a single item.
func ItemPath(t models.ItemType, id string) string {
	return fmt.Sprintf("%s/%s/%s", itemsRoot, t, id)
}

// ItemDir returns the directory listing path for one collection.
func ItemDir(t models.ItemType) string {
	return fmt.Sprintf("%s/%s", itemsRoot, t)
}

// ItemIDFromPath extracts the item id from an items/<type>/<id> path.
// Returns "" if the path does not match the layout.
func ItemIDFromPath(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[0] != itemsRoot {
		return ""
	}
	return parts[2]
}
