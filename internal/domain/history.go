package domain

// History is the ordered, append-only message log of one course chat.
// Appends never modify earlier entries; replacing the whole log is the only
// other permitted change.
type History struct {
	messages []Message
}

// NewHistory creates a history holding a copy of msgs.
func NewHistory(msgs []Message) History {
	return History{messages: append([]Message(nil), msgs...)}
}

// Append returns a history with msg added at the end.
func (h History) Append(msg Message) History {
	next := make([]Message, len(h.messages), len(h.messages)+1)
	copy(next, h.messages)
	return History{messages: append(next, msg)}
}

// Len returns the number of messages.
func (h History) Len() int {
	return len(h.messages)
}

// Messages returns a copy of the messages in insertion order.
func (h History) Messages() []Message {
	return append([]Message(nil), h.messages...)
}
