package driver

import "time"

// Stage names one step of the per-fixture pipeline.
type Stage string

const (
	StageLoad       Stage = "load"
	StageDelegation Stage = "delegation"
	StageRedecl     Stage = "redecl"
	StageOverload   Stage = "overload"
	StageSmartcast  Stage = "smartcast"
	StageCtorcheck  Stage = "ctorcheck"
)

// Stages lists the pipeline in execution order.
var Stages = []Stage{StageLoad, StageDelegation, StageRedecl, StageOverload, StageSmartcast, StageCtorcheck}

// Status captures progress state within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for a fixture (or for the whole run when File is
// empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. It is called from worker
// goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(sink ProgressSink, evt Event) {
	if sink != nil {
		sink.OnEvent(evt)
	}
}
