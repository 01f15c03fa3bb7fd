package events

const (
	// KindAssistantReplyReceived identifies a successful chat reply.
	KindAssistantReplyReceived Kind = "assistant.reply_received"
	// KindAssistantReplyFailed identifies a failed chat submission.
	KindAssistantReplyFailed Kind = "assistant.reply_failed"
)

// AssistantReplyReceived carries the reply text returned by the chat endpoint.
type AssistantReplyReceived struct {
	Base
	Text string
}

// NewAssistantReplyReceived creates an assistant reply received event.
func NewAssistantReplyReceived(text string) AssistantReplyReceived {
	return AssistantReplyReceived{Base: newBase(KindAssistantReplyReceived), Text: text}
}

// AssistantReplyFailed marks a chat submission that did not produce a reply.
type AssistantReplyFailed struct {
	Base
	Err error
}

// NewAssistantReplyFailed creates an assistant reply failed event.
func NewAssistantReplyFailed(err error) AssistantReplyFailed {
	return AssistantReplyFailed{Base: newBase(KindAssistantReplyFailed), Err: err}
}
