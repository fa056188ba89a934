package websocket

import (
	"encoding/json"
	"strings"
	"time"

	"homelink/internal/usecase"
	"homelink/pkg/errors"
	"homelink/pkg/logger"
	"homelink/pkg/response"
)

// Client frame types
const (
	MessageTypePing            = "ping"
	MessageTypeSendMessage     = "send_message"
	MessageTypeJoinChatRoom    = "join_chat_room"
	MessageTypeLeaveChatRoom   = "leave_chat_room"
	MessageTypeMarkMessageRead = "mark_message_read"
	MessageTypeMarkRead        = "mark_read"
)

// Server frame types
const (
	MessageTypePong             = "pong"
	MessageTypeMessageSent      = "message_sent"
	MessageTypeMessages         = "messages"
	MessageTypeInbox            = "inbox"
	MessageTypeJoined           = "joined"
	MessageTypeLeft             = "left"
	MessageTypeReadReceipt      = "read_receipt"
	MessageTypeConversationRead = "conversation_read"
	MessageTypeError            = "error"
)

// WSMessage is a frame from the client. ChatID may sit at the top level or
// inside Data.
type WSMessage struct {
	Type   string          `json:"type"`
	ChatID string          `json:"chat_id,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Frame is a frame to the client.
type Frame struct {
	Type      string      `json:"type"`
	ChatID    string      `json:"chat_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type SendMessageData struct {
	TempID        string `json:"temp_id"`
	ChatID        string `json:"chat_id"`
	Content       string `json:"content"`
	Type          string `json:"type"`
	AttachmentURL string `json:"attachment_url"`
}

type RoomData struct {
	ChatID string `json:"chat_id"`
}

type MarkReadData struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

type MessageSentData struct {
	TempID  string      `json:"temp_id,omitempty"`
	Message interface{} `json:"message"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"temp_id,omitempty"`
}

// HandleClientMessage dispatches one client frame.
func (m *Manager) HandleClientMessage(client *Client, messageBytes []byte) {
	var msg WSMessage
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		logger.Debug("WebSocket: malformed frame from %s: %v", client.Actor.UserID, err)
		m.sendError(client, "", "", errors.InvalidInput("Invalid message format", err))
		return
	}

	switch msg.Type {
	case MessageTypePing:
		m.sendToClient(client, Frame{Type: MessageTypePong, Data: map[string]string{"status": "alive"}})

	case MessageTypeSendMessage:
		m.handleSendMessage(client, msg)

	case MessageTypeJoinChatRoom:
		m.handleJoinChatRoom(client, msg)

	case MessageTypeLeaveChatRoom:
		m.handleLeaveChatRoom(client, msg)

	case MessageTypeMarkMessageRead:
		m.handleMarkMessageRead(client, msg)

	case MessageTypeMarkRead:
		m.handleMarkRead(client, msg)

	default:
		logger.Debug("WebSocket: unknown frame type %q from %s", msg.Type, client.Actor.UserID)
		m.sendError(client, msg.ChatID, "", errors.InvalidInput("Unknown message type", nil))
	}
}

// decode reads msg.Data into out and fills the chat id from the top level
// when the payload leaves it empty.
func decode(msg WSMessage, out interface{}) error {
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(msg.Data, out); err != nil {
		return errors.InvalidInput("Invalid message data", err)
	}
	return nil
}

func chatID(msg WSMessage, fromData string) string {
	if id := strings.TrimSpace(fromData); id != "" {
		return id
	}
	return strings.TrimSpace(msg.ChatID)
}

func (m *Manager) handleSendMessage(client *Client, msg WSMessage) {
	var data SendMessageData
	if err := decode(msg, &data); err != nil {
		m.sendError(client, msg.ChatID, "", err)
		return
	}
	conversationID := chatID(msg, data.ChatID)

	message, err := m.messaging.SendMessage(client.ctx, client.Actor, usecase.SendMessageInput{
		ConversationID: conversationID,
		Content:        data.Content,
		Type:           data.Type,
		AttachmentURL:  data.AttachmentURL,
	})
	if err != nil {
		m.sendError(client, conversationID, data.TempID, err)
		return
	}

	m.sendToClient(client, Frame{
		Type:   MessageTypeMessageSent,
		ChatID: conversationID,
		Data:   MessageSentData{TempID: data.TempID, Message: message},
	})
}

// handleJoinChatRoom subscribes the client to a conversation. The current
// messages arrive immediately and again after every change.
func (m *Manager) handleJoinChatRoom(client *Client, msg WSMessage) {
	var data RoomData
	if err := decode(msg, &data); err != nil {
		m.sendError(client, msg.ChatID, "", err)
		return
	}
	conversationID := chatID(msg, data.ChatID)

	unsubscribe, err := m.messaging.WatchConversation(client.ctx, client.Actor, conversationID, func(messages []*usecase.MessageView) {
		m.sendToClient(client, Frame{
			Type:   MessageTypeMessages,
			ChatID: conversationID,
			Data:   map[string]interface{}{"messages": messages},
		})
	})
	if err != nil {
		m.sendError(client, conversationID, "", err)
		return
	}

	client.joinRoom(conversationID, unsubscribe)
	m.sendToClient(client, Frame{Type: MessageTypeJoined, ChatID: conversationID})
}

func (m *Manager) handleLeaveChatRoom(client *Client, msg WSMessage) {
	var data RoomData
	if err := decode(msg, &data); err != nil {
		m.sendError(client, msg.ChatID, "", err)
		return
	}
	conversationID := chatID(msg, data.ChatID)

	client.leaveRoom(conversationID)
	m.sendToClient(client, Frame{Type: MessageTypeLeft, ChatID: conversationID})
}

func (m *Manager) handleMarkMessageRead(client *Client, msg WSMessage) {
	var data MarkReadData
	if err := decode(msg, &data); err != nil {
		m.sendError(client, msg.ChatID, "", err)
		return
	}
	conversationID := chatID(msg, data.ChatID)

	message, err := m.messaging.MarkMessageRead(client.ctx, client.Actor, conversationID, data.MessageID)
	if err != nil {
		m.sendError(client, conversationID, "", err)
		return
	}

	m.sendToClient(client, Frame{
		Type:   MessageTypeReadReceipt,
		ChatID: conversationID,
		Data: map[string]interface{}{
			"message_id": message.ID,
			"is_read":    message.IsRead,
			"read_at":    message.ReadAt,
		},
	})
}

func (m *Manager) handleMarkRead(client *Client, msg WSMessage) {
	var data RoomData
	if err := decode(msg, &data); err != nil {
		m.sendError(client, msg.ChatID, "", err)
		return
	}
	conversationID := chatID(msg, data.ChatID)

	marked, err := m.messaging.MarkConversationRead(client.ctx, client.Actor, conversationID)
	if err != nil {
		m.sendError(client, conversationID, "", err)
		return
	}

	m.sendToClient(client, Frame{
		Type:   MessageTypeConversationRead,
		ChatID: conversationID,
		Data:   map[string]interface{}{"marked_read": marked},
	})
}

// watchInbox keeps the client's conversation list live for the lifetime of
// the socket.
func (m *Manager) watchInbox(client *Client) {
	_, err := m.messaging.WatchInbox(client.ctx, client.Actor, func(conversations []*usecase.ConversationView) {
		m.sendToClient(client, Frame{
			Type: MessageTypeInbox,
			Data: map[string]interface{}{"conversations": conversations},
		})
	})
	if err != nil {
		logger.Warn("WebSocket: inbox watch failed for %s: %v", client.Actor.UserID, err)
		m.sendError(client, "", "", err)
	}
}

func (m *Manager) sendToClient(client *Client, frame Frame) {
	frame.Timestamp = time.Now().UTC().Format(time.RFC3339)
	payload, err := json.Marshal(frame)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s frame: %v", frame.Type, err)
		return
	}
	client.enqueue(payload)
}

// sendError reports err with the same code and message the HTTP API uses.
func (m *Manager) sendError(client *Client, conversationID, tempID string, err error) {
	_, body := response.Failure(err)
	m.sendToClient(client, Frame{
		Type:   MessageTypeError,
		ChatID: conversationID,
		Data: ErrorData{
			Code:    body.Error.Code,
			Message: body.Error.Message,
			TempID:  tempID,
		},
	})
}
