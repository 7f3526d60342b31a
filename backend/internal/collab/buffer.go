package collab

import "docsync/backend/internal/ot/delta"

// Buffer holds one session's in-memory document content. Apply either
// applies the whole delta or leaves the content unchanged and returns an
// error; the sequencer relies on that to keep revision and content in step.
type Buffer interface {
	Len() int
	String() string
	Apply(d delta.Delta) error
}
