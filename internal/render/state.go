package render

import (
	"captionstudio/internal/pkg/errors"
)

// Status is the tag of a State.
type Status string

const (
	StatusInit      Status = "init"
	StatusInvoking  Status = "invoking"
	StatusRendering Status = "rendering"
	StatusDone      Status = "done"
	StatusError     Status = "error"
)

// State is one of Init, Invoking, Rendering, Done or Failed.
type State interface {
	Status() Status
	state()
}

type Init struct{}

type Invoking struct{}

// Rendering always carries the handle returned at submission.
type Rendering struct {
	Handle   JobHandle
	Progress float64
}

// Done is terminal.
type Done struct {
	URL       string
	SizeBytes int64
}

// Failed carries the render id when the failure happened after submission,
// nil otherwise.
type Failed struct {
	RenderID *string
	Err      error
}

func (Init) Status() Status      { return StatusInit }
func (Invoking) Status() Status  { return StatusInvoking }
func (Rendering) Status() Status { return StatusRendering }
func (Done) Status() Status      { return StatusDone }
func (Failed) Status() Status    { return StatusError }

func (Init) state()      {}
func (Invoking) state()  {}
func (Rendering) state() {}
func (Done) state()      {}
func (Failed) state()    {}

// Terminal reports whether no further transition follows s without a new
// Render or Undo.
func Terminal(s State) bool {
	switch s.(type) {
	case Done, Failed:
		return true
	}
	return false
}

// Snapshot is the JSON form of a State, as stored and streamed to clients.
type Snapshot struct {
	Status     Status         `json:"status"`
	RenderID   *string        `json:"renderId,omitempty"`
	BucketName string         `json:"bucketName,omitempty"`
	Progress   *float64       `json:"progress,omitempty"`
	URL        string         `json:"url,omitempty"`
	Size       *int64         `json:"size,omitempty"`
	Error      *SnapshotError `json:"error,omitempty"`
}

type SnapshotError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SnapshotOf converts s to its wire form.
func SnapshotOf(s State) Snapshot {
	switch v := s.(type) {
	case Invoking:
		return Snapshot{Status: StatusInvoking}
	case Rendering:
		id, p := v.Handle.RenderID, v.Progress
		return Snapshot{Status: StatusRendering, RenderID: &id, BucketName: v.Handle.BucketName, Progress: &p}
	case Done:
		size := v.SizeBytes
		return Snapshot{Status: StatusDone, URL: v.URL, Size: &size}
	case Failed:
		snap := Snapshot{Status: StatusError, RenderID: v.RenderID}
		if v.Err != nil {
			snap.Error = &SnapshotError{
				Code:    string(errors.GetCode(v.Err)),
				Message: errors.PublicMessage(v.Err),
			}
		}
		return snap
	default:
		return Snapshot{Status: StatusInit}
	}
}

// State rebuilds the State a snapshot was taken from. Errors come back as
// coded errors carrying the stored message.
func (s Snapshot) State() State {
	switch s.Status {
	case StatusInvoking:
		return Invoking{}
	case StatusRendering:
		r := Rendering{Handle: JobHandle{BucketName: s.BucketName}}
		if s.RenderID != nil {
			r.Handle.RenderID = *s.RenderID
		}
		if s.Progress != nil {
			r.Progress = *s.Progress
		}
		return r
	case StatusDone:
		d := Done{URL: s.URL}
		if s.Size != nil {
			d.SizeBytes = *s.Size
		}
		return d
	case StatusError:
		f := Failed{RenderID: s.RenderID}
		if s.Error != nil {
			f.Err = errors.New(errors.Code(s.Error.Code), s.Error.Message)
		}
		return f
	default:
		return Init{}
	}
}
