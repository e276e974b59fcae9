package call

// Frame is a unit of work queued to a call session.
type Frame interface {
	frame()
}

// ContextFrame asks the agent to take a turn on the current context.
type ContextFrame struct{}

// TranscriptFrame carries one transcribed customer utterance.
type TranscriptFrame struct {
	Text string
}

// EndFrame terminates the session's pipeline.
type EndFrame struct{}

func (ContextFrame) frame()    {}
func (TranscriptFrame) frame() {}
func (EndFrame) frame()        {}
