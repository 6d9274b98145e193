package conversion

import (
	"context"
	"time"

	"filewell/internal/dispatch"
	"filewell/internal/formats"
)

// Status is the coarse state of an item.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConverting Status = "converting"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Converter performs one conversion. *dispatch.Dispatcher satisfies it.
type Converter interface {
	Convert(ctx context.Context, src dispatch.Source, target string) (dispatch.Result, error)
}

// Event reports one transition. From is empty on admission and To is empty
// on removal.
type Event struct {
	ItemID int64
	From   Status
	To     Status
}

// Observer receives events in transition order. It runs with the store lock
// held and must not call back into the store.
type Observer func(Event)

type state interface {
	status() Status
}

type idleState struct {
	selected string
}

type convertingState struct {
	target  string
	attempt uint64
	settled chan struct{}
}

type doneState struct {
	target string
	result *ResultHandle
}

type errorState struct {
	target  string
	message string
	kind    string
}

func (idleState) status() Status       { return StatusIdle }
func (convertingState) status() Status { return StatusConverting }
func (doneState) status() Status       { return StatusDone }
func (errorState) status() Status      { return StatusError }

type item struct {
	id         int64
	source     dispatch.Source
	category   formats.Category
	current    string
	admittedAt time.Time
	state      state
}

// Snapshot is a read-only copy of an item. State-specific fields are zero
// outside their state.
type Snapshot struct {
	ID            int64
	Name          string
	ContentType   string
	Size          int64
	Category      formats.Category
	CurrentFormat string
	AdmittedAt    time.Time

	Status         Status
	SelectedFormat string // idle only
	Target         string // converting, done, error
	ResultType     string // done only
	ResultSize     int    // done only
	LastError      string // error only
	ErrorKind      string // error only
}

func (it *item) snapshot() Snapshot {
	snap := Snapshot{
		ID:            it.id,
		Name:          it.source.Name,
		ContentType:   it.source.ContentType,
		Size:          it.source.Size(),
		Category:      it.category,
		CurrentFormat: it.current,
		AdmittedAt:    it.admittedAt,
		Status:        it.state.status(),
	}
	switch st := it.state.(type) {
	case idleState:
		snap.SelectedFormat = st.selected
	case convertingState:
		snap.Target = st.target
	case doneState:
		snap.Target = st.target
		snap.ResultType = st.result.ContentType()
		snap.ResultSize = st.result.Size()
	case errorState:
		snap.Target = st.target
		snap.LastError = st.message
		snap.ErrorKind = st.kind
	}
	return snap
}
