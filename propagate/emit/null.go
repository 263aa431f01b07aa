package emit

// NullEmitter discards all events. Use when observability is not wanted
// without changing calling code.
type NullEmitter struct{}

// NewNullEmitter returns an emitter that drops everything.
func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

// Emit discards the event.
func (n *NullEmitter) Emit(event Event) {}
