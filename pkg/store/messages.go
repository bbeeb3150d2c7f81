package store

import (
	"errors"
	"strings"
	"sync"
	"time"

	graphql "github.com/neoscript99/go-gql-domain"
)

// Message types.
const (
	MessageInfo    = "info"
	MessageSuccess = "success"
	MessageError   = "error"
)

// Message display durations.
const (
	DefaultMessageDuration = time.Second
	ErrorMessageDuration   = 2 * time.Second
)

// Message is a user-facing notification.
type Message struct {
	Text        string
	Duration    time.Duration
	Type        string
	Status      string
	IsOpened    bool
	CreatedTime time.Time
}

// MessageHandler displays messages. A nil handler discards them.
type MessageHandler func(Message)

// Messages keeps the last message and forwards every new one to a handler.
type Messages struct {
	mu      sync.Mutex
	handler MessageHandler
	last    Message
	now     func() time.Time
}

// NewMessages returns Messages forwarding to handler, which may be nil.
func NewMessages(handler MessageHandler) *Messages {
	return &Messages{handler: handler, now: time.Now}
}

// NewMessage records and dispatches a message. Zero Duration and empty Type
// default to one second and info.
func (m *Messages) NewMessage(text string, duration time.Duration, typ string) {
	if duration <= 0 {
		duration = DefaultMessageDuration
	}
	if typ == "" {
		typ = MessageInfo
	}
	msg := Message{
		Text:        text,
		Duration:    duration,
		Type:        typ,
		Status:      typ,
		IsOpened:    true,
		CreatedTime: m.now(),
	}

	m.mu.Lock()
	m.last = msg
	handler := m.handler
	m.mu.Unlock()

	if handler != nil {
		handler(msg)
	}
}

// NewInfo dispatches an informational message.
func (m *Messages) NewInfo(text string) {
	m.NewMessage(text, DefaultMessageDuration, MessageInfo)
}

// NewSuccess dispatches a success message.
func (m *Messages) NewSuccess(text string) {
	m.NewMessage(text, DefaultMessageDuration, MessageSuccess)
}

// NewError dispatches an error message.
func (m *Messages) NewError(text string) {
	m.NewMessage(text, ErrorMessageDuration, MessageError)
}

// NewGraphQLError dispatches the user-facing part of err as an error
// message and returns err unchanged.
func (m *Messages) NewGraphQLError(err error) error {
	if err == nil {
		return nil
	}
	m.NewError(UserMessage(err))
	return err
}

// CloseMessage marks the last message as closed.
func (m *Messages) CloseMessage() {
	m.mu.Lock()
	m.last.IsOpened = false
	m.mu.Unlock()
}

// Message returns the last message.
func (m *Messages) Message() Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

const (
	graphQLErrorSegment = "GraphQL error"
	fetchingDataSegment = "Exception while fetching data"
)

// UserMessage extracts the detail of a backend error message such as
// "Error: GraphQL error: Exception while fetching data (/reserveCreate) : no seats left".
// Segments up to and including the last known prefix marker are dropped.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	var gqlErrs graphql.Errors
	if errors.As(err, &gqlErrs) && len(gqlErrs) > 0 {
		text = gqlErrs.Message()
	} else {
		var gqlErr graphql.Error
		if errors.As(err, &gqlErr) {
			text = gqlErr.Message
		}
	}

	segments := strings.Split(text, ":")
	last := -1
	for i, s := range segments {
		s = strings.TrimSpace(s)
		if s == graphQLErrorSegment || strings.Contains(s, fetchingDataSegment) {
			last = i
		}
	}
	detail := strings.TrimSpace(strings.Join(segments[last+1:], ":"))
	if detail == "" {
		return strings.TrimSpace(text)
	}
	return detail
}
