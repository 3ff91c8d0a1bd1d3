package models

import "encoding/json"

// Activity types delivered by a channel adapter.
const (
	ActivityMessage            = "message"
	ActivityConversationUpdate = "conversationUpdate"
)

// ChannelAccount identifies a conversation participant on the channel.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Activity is one turn's input, normalized away from any concrete channel.
type Activity struct {
	Type           string           `json:"type"`
	ConversationID string           `json:"conversation_id"`
	Text           string           `json:"text,omitempty"`
	MembersAdded   []ChannelAccount `json:"members_added,omitempty"`
	RecipientID    string           `json:"recipient_id,omitempty"`
}

// PendingPrompt records a suspension point: the prompt the top frame is
// waiting on, with enough data to re-issue it on a rejected reply.
type PendingPrompt struct {
	Prompt  string   `json:"prompt"`
	Text    string   `json:"text"`
	Choices []string `json:"choices,omitempty"`
}

// DialogFrame is one activation record on the conversation's dialog stack.
type DialogFrame struct {
	Dialog  string                 `json:"dialog"`
	Step    int                    `json:"step"`
	Scratch map[string]interface{} `json:"scratch"`
	Pending *PendingPrompt         `json:"pending,omitempty"`
}

// ConversationState is the payload persisted around every turn. The frame
// stack is the whole of the dialog engine's durable state.
type ConversationState struct {
	ConversationID string        `json:"conversation_id"`
	Frames         []DialogFrame `json:"frames"`
}

// Top returns the active frame, or nil when the conversation is idle.
func (s *ConversationState) Top() *DialogFrame {
	if s == nil || len(s.Frames) == 0 {
		return nil
	}
	return &s.Frames[len(s.Frames)-1]
}

// Depth reports the stack depth.
func (s *ConversationState) Depth() int {
	if s == nil {
		return 0
	}
	return len(s.Frames)
}

// Set stores a scratch value, allocating the map on first use.
func (f *DialogFrame) Set(key string, value interface{}) {
	if f.Scratch == nil {
		f.Scratch = make(map[string]interface{})
	}
	f.Scratch[key] = value
}

// GetString reads a scratch string, tolerant of a missing key.
func (f *DialogFrame) GetString(key string) string {
	if f.Scratch == nil {
		return ""
	}
	if s, ok := f.Scratch[key].(string); ok {
		return s
	}
	return ""
}

// GetInt64 reads a scratch integer. Values that crossed a JSON round trip
// come back as float64, so both representations are accepted.
func (f *DialogFrame) GetInt64(key string) int64 {
	if f.Scratch == nil {
		return 0
	}
	switch v := f.Scratch[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// GetBool reads a scratch boolean.
func (f *DialogFrame) GetBool(key string) bool {
	if f.Scratch == nil {
		return false
	}
	b, _ := f.Scratch[key].(bool)
	return b
}

// GetStringSlice reads a scratch string list, tolerant of the []interface{}
// form it takes after a JSON round trip.
func (f *DialogFrame) GetStringSlice(key string) []string {
	if f.Scratch == nil {
		return nil
	}
	switch v := f.Scratch[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// GetTimeWindow reads a scratch TimeWindow. After state persistence the
// struct becomes a generic map, so it is decoded back through JSON.
func (f *DialogFrame) GetTimeWindow(key string) TimeWindow {
	if f.Scratch == nil {
		return TimeWindow{}
	}
	switch v := f.Scratch[key].(type) {
	case TimeWindow:
		return v
	case map[string]interface{}:
		raw, err := json.Marshal(v)
		if err != nil {
			return TimeWindow{}
		}
		var w TimeWindow
		if err := json.Unmarshal(raw, &w); err != nil {
			return TimeWindow{}
		}
		return w
	default:
		return TimeWindow{}
	}
}
