package tagfetch

import "time"

// TagKind identifies one metadata field of a track.
type TagKind int

const (
	TagTitle TagKind = iota
	TagAlbum
	TagAlbumArtist
	TagComposer
	TagPerformer
)

// String returns the snake_case field name.
func (k TagKind) String() string {
	switch k {
	case TagTitle:
		return "title"
	case TagAlbum:
		return "album"
	case TagAlbumArtist:
		return "album_artist"
	case TagComposer:
		return "composer"
	case TagPerformer:
		return "performer"
	default:
		return "unknown"
	}
}

// TagItem is one (kind, value) pair.
type TagItem struct {
	Kind  TagKind
	Value string
}

// TagRecord is the finalized metadata of one track. Items keep their
// insertion order and may repeat a kind; a record is immutable once
// committed.
type TagRecord struct {
	Items    []TagItem
	Duration time.Duration
}

// Get returns the first value of the given kind, if any.
func (r TagRecord) Get(kind TagKind) (string, bool) {
	for _, item := range r.Items {
		if item.Kind == kind {
			return item.Value, true
		}
	}
	return "", false
}

// Builder accumulates tag items until Commit.
type Builder struct {
	items    []TagItem
	duration time.Duration
}

// Add appends one item. Empty values are dropped.
func (b *Builder) Add(kind TagKind, value string) {
	if value == "" {
		return
	}
	b.items = append(b.items, TagItem{Kind: kind, Value: value})
}

// SetDuration records the track duration. Non-positive durations are
// ignored.
func (b *Builder) SetDuration(d time.Duration) {
	if d > 0 {
		b.duration = d
	}
}

// Commit finalizes the record and resets the builder.
func (b *Builder) Commit() TagRecord {
	record := TagRecord{Items: b.items, Duration: b.duration}
	b.items = nil
	b.duration = 0
	return record
}
