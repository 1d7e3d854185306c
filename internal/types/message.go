package types

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a conversation transcript. Content holds
// the blocks making up the message body; plain text messages have a
// single text block.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage builds a message with a single text block.
func TextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

// Text concatenates the text of all text and json blocks in the message.
func (m Message) Text() string {
	var out string
	for _, b := range m.Content {
		if b.Type == "text" || b.Type == "json" {
			out += b.Text
		}
	}
	return out
}

// HasMedia reports whether the message contains any image block.
func (m Message) HasMedia() bool {
	for _, b := range m.Content {
		if b.Type == "image" {
			return true
		}
	}
	return false
}
