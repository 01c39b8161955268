package models

import "sort"

// Payload is the tagged union over the three domain record shapes. Exactly
// one of Note, List, Event is non-nil, matching Type. The sync engine treats
// the payload as an opaque blob except at the conflict-detection boundary,
// where the mergeable/non-mergeable field classification below applies.
type Payload struct {
	Type  ItemType      `json:"type"`
	Note  *NotePayload  `json:"note,omitempty"`
	List  *ListPayload  `json:"list,omitempty"`
	Event *EventPayload `json:"event,omitempty"`
}

// NotePayload is free-form text content. Title and Body are non-mergeable;
// Tags is a set-valued, mergeable field.
type NotePayload struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`
}

// ListPayload is an ordered checklist. The entry order is meaningful, so
// Entries is non-mergeable despite being a slice.
type ListPayload struct {
	Title   string   `json:"title"`
	Entries []string `json:"entries,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// EventPayload is a dated record with set-valued attachments.
type EventPayload struct {
	Title       string   `json:"title"`
	Notes       string   `json:"notes"`
	StartsAt    int64    `json:"starts_at"`
	Tags        []string `json:"tags,omitempty"`
	Attachments []string `json:"attachments,omitempty"`
}

// Field names reported by DiffFields.
const (
	FieldTitle       = "title"
	FieldBody        = "body"
	FieldEntries     = "entries"
	FieldNotes       = "notes"
	FieldStartsAt    = "starts_at"
	FieldTags        = "tags"
	FieldAttachments = "attachments"
	FieldType        = "type"
)

// Hash returns a deterministic content digest of the payload.
func (p Payload) Hash() string {
	return hashJSON(p)
}

// DiffFields compares two payloads of the same item and splits the
// disagreeing field names into mergeable (set-valued) and conflicting
// (scalar or ordered) groups. A type mismatch is always conflicting.
func (p Payload) DiffFields(other Payload) (mergeable, conflicting []string) {
	if p.Type != other.Type {
		return nil, []string{FieldType}
	}

	switch p.Type {
	case TypeNote:
		a, b := p.Note, other.Note
		if a == nil || b == nil {
			if a != b {
				conflicting = append(conflicting, FieldType)
			}
			return mergeable, conflicting
		}
		if a.Title != b.Title {
			conflicting = append(conflicting, FieldTitle)
		}
		if a.Body != b.Body {
			conflicting = append(conflicting, FieldBody)
		}
		if !sameSet(a.Tags, b.Tags) {
			mergeable = append(mergeable, FieldTags)
		}

	case TypeList:
		a, b := p.List, other.List
		if a == nil || b == nil {
			if a != b {
				conflicting = append(conflicting, FieldType)
			}
			return mergeable, conflicting
		}
		if a.Title != b.Title {
			conflicting = append(conflicting, FieldTitle)
		}
		if !sameOrdered(a.Entries, b.Entries) {
			conflicting = append(conflicting, FieldEntries)
		}
		if !sameSet(a.Tags, b.Tags) {
			mergeable = append(mergeable, FieldTags)
		}

	case TypeEvent:
		a, b := p.Event, other.Event
		if a == nil || b == nil {
			if a != b {
				conflicting = append(conflicting, FieldType)
			}
			return mergeable, conflicting
		}
		if a.Title != b.Title {
			conflicting = append(conflicting, FieldTitle)
		}
		if a.Notes != b.Notes {
			conflicting = append(conflicting, FieldNotes)
		}
		if a.StartsAt != b.StartsAt {
			conflicting = append(conflicting, FieldStartsAt)
		}
		if !sameSet(a.Tags, b.Tags) {
			mergeable = append(mergeable, FieldTags)
		}
		if !sameSet(a.Attachments, b.Attachments) {
			mergeable = append(mergeable, FieldAttachments)
		}
	}

	return mergeable, conflicting
}

// MergeSets returns a copy of p whose set-valued fields hold the sorted
// union of both payloads' values. Scalar and ordered fields keep p's values;
// callers must only use this when DiffFields reported no conflicting fields.
func (p Payload) MergeSets(other Payload) Payload {
	merged := p.clone()

	switch p.Type {
	case TypeNote:
		if merged.Note != nil && other.Note != nil {
			merged.Note.Tags = unionSorted(merged.Note.Tags, other.Note.Tags)
		}
	case TypeList:
		if merged.List != nil && other.List != nil {
			merged.List.Tags = unionSorted(merged.List.Tags, other.List.Tags)
		}
	case TypeEvent:
		if merged.Event != nil && other.Event != nil {
			merged.Event.Tags = unionSorted(merged.Event.Tags, other.Event.Tags)
			merged.Event.Attachments = unionSorted(merged.Event.Attachments, other.Event.Attachments)
		}
	}

	return merged
}

func (p Payload) clone() Payload {
	out := Payload{Type: p.Type}
	if p.Note != nil {
		n := *p.Note
		n.Tags = append([]string(nil), p.Note.Tags...)
		out.Note = &n
	}
	if p.List != nil {
		l := *p.List
		l.Entries = append([]string(nil), p.List.Entries...)
		l.Tags = append([]string(nil), p.List.Tags...)
		out.List = &l
	}
	if p.Event != nil {
		e := *p.Event
		e.Tags = append([]string(nil), p.Event.Tags...)
		e.Attachments = append([]string(nil), p.Event.Attachments...)
		out.Event = &e
	}
	return out
}

// sameSet compares two string slices as unordered sets.
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		seen[v]--
		if seen[v] < 0 {
			return false
		}
	}
	return true
}

func sameOrdered(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func unionSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, v := range a {
		seen[v] = struct{}{}
	}
	for _, v := range b {
		seen[v] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
