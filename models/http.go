package models

// ObjectEntry is one element of a directory listing returned by the object
// store. Token is the entry's current version token.
type ObjectEntry struct {
	Path      string `json:"path"`
	Token     string `json:"token"`
	UpdatedAt int64  `json:"updated_at"`
}

// ObjectListing is the response body of the list-directory call.
type ObjectListing struct {
	Dir     string        `json:"dir"`
	Entries []ObjectEntry `json:"entries"`
}
