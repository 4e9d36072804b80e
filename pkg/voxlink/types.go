package voxlink

import "time"

// Message is one chat or SMS message on the VoxLink platform.
type Message struct {
	ID        string    `json:"id"`
	Folder    string    `json:"folder"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	Direction string    `json:"direction"` // "inbound", "outbound"
	CreatedAt time.Time `json:"created_at"`
}

// SendMessageRequest is the payload for sending a message.
type SendMessageRequest struct {
	To     string `json:"to"`
	Body   string `json:"body"`
	Folder string `json:"folder,omitempty"`
}

// Voicemail is one recorded voicemail in a mailbox.
type Voicemail struct {
	ID         string        `json:"id"`
	Mailbox    string        `json:"mailbox"`
	From       string        `json:"from"`
	Duration   time.Duration `json:"duration"`
	Transcript string        `json:"transcript,omitempty"`
	Heard      bool          `json:"heard"`
	ReceivedAt time.Time     `json:"received_at"`
}

// Folder groups messages.
type Folder struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// CallRecord is one entry in the call history.
type CallRecord struct {
	ID        string        `json:"id"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Direction string        `json:"direction"`
	Status    string        `json:"status"` // "completed", "missed", "busy"
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
}
