package types

// ContentBlockText identifies a textual content block.
const ContentBlockText = "text"

// ContentBlock is one element of a structured agent message.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ConversationMessage is a structured agent message carrying an ordered
// list of content blocks.
type ConversationMessage struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// AgentResponse is the result of a lead-agent invocation. Upstream model
// services answer either with a plain string or with a structured message,
// so the response is a tagged variant: exactly one of Plain or Message is
// set. Consumers must go through Text instead of inspecting the fields.
type AgentResponse struct {
	Plain   string
	Message *ConversationMessage
}

// NewPlainResponse wraps a plain-text model answer.
func NewPlainResponse(text string) *AgentResponse {
	return &AgentResponse{Plain: text}
}

// NewMessageResponse wraps a structured model answer.
func NewMessageResponse(msg *ConversationMessage) *AgentResponse {
	return &AgentResponse{Message: msg}
}

// Text extracts the response text. For a structured message it returns the
// first textual content block. It fails closed: a nil response, an empty
// message, or a message whose first block carries no text all yield ok=false
// rather than a panic.
func (r *AgentResponse) Text() (string, bool) {
	if r == nil {
		return "", false
	}
	if r.Message != nil {
		for _, block := range r.Message.Content {
			if block.Type == ContentBlockText || block.Type == "" {
				if block.Text == "" {
					return "", false
				}
				return block.Text, true
			}
		}
		return "", false
	}
	if r.Plain == "" {
		return "", false
	}
	return r.Plain, true
}
