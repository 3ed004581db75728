package vsync

// Verb is one of the two user-facing actions.
type Verb string

const (
	VerbPush Verb = "push"
	VerbPull Verb = "pull"
)

// Phase is a human-readable label for a step of an operation.
type Phase string

const (
	PhaseZipping     Phase = "zipping"
	PhaseUploading   Phase = "uploading"
	PhaseDownloading Phase = "downloading"
	PhaseExtracting  Phase = "extracting"
	PhaseSyncing     Phase = "syncing"
)

// Status is the state a phase reports.
type Status string

const (
	StatusStarted   Status = "started"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Event is a coarse progress notification sent back to the trigger.
type Event struct {
	Verb   Verb
	Phase  Phase
	Status Status
	Err    error // set when Status is StatusFailed
}

// Notifier receives phase notifications. Implementations must not block.
type Notifier interface {
	Notify(e Event)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(e Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) Notify(Event) {}
