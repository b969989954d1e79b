// Package testutil provides test doubles and in-process servers shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/t77yq/deadline-bot/internal/model"
)

// Edit records one EditMessage call
type Edit struct {
	ChannelID string
	MessageID string
	Message   *model.Message
}

// Messenger is an in-memory scheduler.Messenger
type Messenger struct {
	mu       sync.Mutex
	gone     error
	nextID   int
	messages map[string]*model.Message
	deleted  map[string]bool
	posts    []Edit
	edits    []Edit
	failEdit error
	failPost error
}

// NewMessenger creates an empty fake messenger; gone is wrapped when a message is missing
func NewMessenger(gone error) *Messenger {
	return &Messenger{
		gone:     gone,
		messages: make(map[string]*model.Message),
		deleted:  make(map[string]bool),
	}
}

// PostMessage posts a new message
func (m *Messenger) PostMessage(ctx context.Context, channelID string, msg *model.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failPost != nil {
		return "", m.failPost
	}

	m.nextID++
	id := fmt.Sprintf("msg-%d", m.nextID)
	m.messages[id] = msg
	m.posts = append(m.posts, Edit{ChannelID: channelID, MessageID: id, Message: msg})
	return id, nil
}

// EditMessage replaces a message
func (m *Messenger) EditMessage(ctx context.Context, channelID, messageID string, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if m.failEdit != nil {
		return m.failEdit
	}
	if err := m.checkLocked(messageID); err != nil {
		return err
	}

	m.messages[messageID] = msg
	m.edits = append(m.edits, Edit{ChannelID: channelID, MessageID: messageID, Message: msg})
	return nil
}

// FetchMessage checks a message exists
func (m *Messenger) FetchMessage(ctx context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return m.checkLocked(messageID)
}

func (m *Messenger) checkLocked(messageID string) error {
	if _, ok := m.messages[messageID]; !ok || m.deleted[messageID] {
		return fmt.Errorf("message %s: %w", messageID, m.gone)
	}
	return nil
}

// Seed registers an existing message, as if posted before a restart
func (m *Messenger) Seed(messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[messageID] = &model.Message{}
}

// Delete simulates the message being removed on the platform
func (m *Messenger) Delete(messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted[messageID] = true
}

// FailEdits makes every later EditMessage call return err
func (m *Messenger) FailEdits(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failEdit = err
}

// FailPosts makes every later PostMessage call return err
func (m *Messenger) FailPosts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPost = err
}

// Current returns the latest content of a message
func (m *Messenger) Current(messageID string) *model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[messageID]
}

// Posts returns every PostMessage call
func (m *Messenger) Posts() []Edit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Edit(nil), m.posts...)
}

// Edits returns every successful EditMessage call for a message
func (m *Messenger) Edits(messageID string) []Edit {
	m.mu.Lock()
	defer m.mu.Unlock()

	var edits []Edit
	for _, e := range m.edits {
		if e.MessageID == messageID {
			edits = append(edits, e)
		}
	}
	return edits
}
