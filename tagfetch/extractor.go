package tagfetch

import (
	"encoding/json"
	"io"
	"time"

	"github.com/c360/audiostreams/errors"
)

// pathState tracks which known key path the extractor is currently
// inside. Group states (composer, album, ...) mark an entered branch;
// terminal states name a field whose scalar may be committed.
type pathState int

const (
	stateNone pathState = iota
	stateTitle
	stateDuration
	stateComposer
	stateComposerName
	stateAlbum
	stateAlbumTitle
	stateAlbumArtist
	stateAlbumArtistName
	statePerformer
	statePerformerName
)

// group collapses a state to the branch it belongs to, so sibling keys
// inside a matched branch fall back to the branch instead of aborting
// the scan.
func (s pathState) group() pathState {
	switch s {
	case stateComposerName:
		return stateComposer
	case stateAlbumTitle:
		return stateAlbum
	case stateAlbumArtistName:
		return stateAlbumArtist
	case statePerformerName:
		return statePerformer
	default:
		return s
	}
}

// keyTransition is one row of the (group, depth, key) transition table.
type keyTransition struct {
	group pathState
	depth int
	key   string
	next  pathState
}

var keyTransitions = []keyTransition{
	{stateNone, 1, "title", stateTitle},
	{stateNone, 1, "duration", stateDuration},
	{stateNone, 1, "composer", stateComposer},
	{stateNone, 1, "album", stateAlbum},
	{stateNone, 1, "performer", statePerformer},

	{stateComposer, 2, "name", stateComposerName},
	{stateAlbum, 2, "title", stateAlbumTitle},
	{stateAlbum, 2, "artist", stateAlbumArtist},
	{statePerformer, 2, "name", statePerformerName},

	{stateAlbumArtist, 3, "name", stateAlbumArtistName},
}

// commit describes a terminal state: which tag kind its scalar feeds
// and the exact depth the scalar must appear at.
type commit struct {
	kind  TagKind
	depth int
}

var stringCommits = map[pathState]commit{
	stateTitle:           {TagTitle, 1},
	stateComposerName:    {TagComposer, 2},
	stateAlbumTitle:      {TagAlbum, 2},
	stateAlbumArtistName: {TagAlbumArtist, 3},
	statePerformerName:   {TagPerformer, 2},
}

// Extractor is a streaming field extractor over object-structure
// events. It keeps one state per open object depth; a key event updates
// the state relative to the state that was active when its depth was
// entered, and closing an object restores the enclosing state.
type Extractor struct {
	state pathState
	// enclosing[d] is the state active when depth d+1 was entered.
	enclosing []pathState
	tag       Builder
}

// NewExtractor returns an extractor at document root.
func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) depth() int { return len(e.enclosing) }

// EnterObject records a nested-object start.
func (e *Extractor) EnterObject() {
	e.enclosing = append(e.enclosing, e.state)
}

// ExitObject records a nested-object end, restoring the enclosing
// state. An exit without a matching enter is a malformed document.
func (e *Extractor) ExitObject() error {
	if len(e.enclosing) == 0 {
		return errors.WrapInvalid(errors.ErrMalformedStructure,
			"Extractor", "ExitObject", "object end without matching start")
	}
	e.state = e.enclosing[len(e.enclosing)-1]
	e.enclosing = e.enclosing[:len(e.enclosing)-1]
	return nil
}

// Key transitions the path state for a key at the current depth.
// Unknown keys fall back to the enclosing branch.
func (e *Extractor) Key(name string) {
	if len(e.enclosing) == 0 {
		return
	}
	group := e.enclosing[len(e.enclosing)-1].group()
	depth := e.depth()
	for _, t := range keyTransitions {
		if t.group == group && t.depth == depth && t.key == name {
			e.state = t.next
			return
		}
	}
	e.state = group
}

// Scalar commits a value when the current state is terminal and the
// value sits at that field's exact depth. Anything else is ignored.
func (e *Extractor) Scalar(value any) {
	depth := e.depth()
	switch v := value.(type) {
	case string:
		if c, ok := stringCommits[e.state]; ok && c.depth == depth {
			e.tag.Add(c.kind, v)
		}
	case int64:
		if e.state == stateDuration && depth == 1 && v > 0 {
			e.tag.SetDuration(time.Duration(v) * time.Second)
		}
	case float64:
		if e.state == stateDuration && depth == 1 && v > 0 {
			e.tag.SetDuration(time.Duration(v * float64(time.Second)))
		}
	}
}

// Finalize ends the event stream and returns the accumulated record.
// A nonzero depth at the end is a malformed document.
func (e *Extractor) Finalize() (TagRecord, error) {
	if len(e.enclosing) != 0 {
		return TagRecord{}, errors.WrapInvalid(errors.ErrMalformedStructure,
			"Extractor", "Finalize", "unclosed object at end of document")
	}
	return e.tag.Commit(), nil
}

// FeedJSON drives the extractor from a JSON document. Arrays carry no
// known field paths but objects nested inside them are still tracked,
// so namesake keys at the wrong level stay ignored.
func (e *Extractor) FeedJSON(r io.Reader) (TagRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	type frame struct {
		object    bool
		expectKey bool
	}
	var frames []frame

	valueDone := func() {
		if len(frames) > 0 && frames[len(frames)-1].object {
			frames[len(frames)-1].expectKey = true
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return TagRecord{}, errors.WrapInvalid(err, "Extractor", "FeedJSON", "decode token")
		}

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{':
				e.EnterObject()
				frames = append(frames, frame{object: true, expectKey: true})
			case '}':
				if err := e.ExitObject(); err != nil {
					return TagRecord{}, err
				}
				frames = frames[:len(frames)-1]
				valueDone()
			case '[':
				frames = append(frames, frame{})
			case ']':
				frames = frames[:len(frames)-1]
				valueDone()
			}
		case string:
			if len(frames) > 0 && frames[len(frames)-1].object && frames[len(frames)-1].expectKey {
				e.Key(v)
				frames[len(frames)-1].expectKey = false
			} else {
				e.Scalar(v)
				valueDone()
			}
		case json.Number:
			if i, convErr := v.Int64(); convErr == nil {
				e.Scalar(i)
			} else if f, convErr := v.Float64(); convErr == nil {
				e.Scalar(f)
			}
			valueDone()
		default:
			// bool or null
			valueDone()
		}
	}
	return e.Finalize()
}
