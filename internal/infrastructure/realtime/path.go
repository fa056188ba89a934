package realtime

import "strings"

const (
	chatsRoot = "chats"
	inboxRoot = "inbox"
)

// ConversationPath is the subtree every change to one conversation touches.
func ConversationPath(conversationID string) string {
	return Join(chatsRoot, conversationID)
}

func MessagePath(conversationID, messageID string) string {
	return Join(chatsRoot, conversationID, "messages", messageID)
}

func SummaryPath(conversationID string) string {
	return Join(chatsRoot, conversationID, "summary")
}

func ReadReceiptPath(conversationID, messageID string) string {
	return Join(chatsRoot, conversationID, "reads", messageID)
}

// InboxPath is pinged whenever a conversation of userID changes.
func InboxPath(userID string) string {
	return Join(inboxRoot, userID)
}

func InboxEntryPath(userID, conversationID string) string {
	return Join(inboxRoot, userID, conversationID)
}

// Join builds a normalized path from segments.
func Join(segments ...string) string {
	return Normalize(strings.Join(segments, "/"))
}

// Normalize drops leading, trailing and repeated slashes.
func Normalize(path string) string {
	return strings.Join(split(path), "/")
}

func split(path string) []string {
	raw := strings.Split(path, "/")
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// related reports whether a write to one path can change what a subscriber
// of the other sees: the paths are equal or one is an ancestor of the other.
func related(a, b string) bool {
	a, b = Normalize(a), Normalize(b)
	if a == b || a == "" || b == "" {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}
