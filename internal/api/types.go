package api

// Contact is a directory entry: ContactMobileNo as seen by MobileNo.
type Contact struct {
	MobileNo        string `json:"mobileNo"`
	ContactMobileNo string `json:"contactMobileNo"`
	ConversationKey string `json:"conversationKey"`
}

type CreateOrFetchContactRequest struct {
	MobileNo        string `json:"mobileNo"`
	ContactMobileNo string `json:"contactMobileNo"`
	// ConversationKey is a hint, adopted only when the pair has no
	// conversation yet.
	ConversationKey string `json:"conversationKey,omitempty"`
}

type ListContactsRequest struct {
	MobileNo string `json:"mobileNo"`
}

type ListContactsResponse struct {
	Contacts []Contact `json:"contacts"`
}

type FetchMessagesRequest struct {
	ConversationKey string `json:"conversationKey"`
	// Limit caps the result to the most recent messages. Zero means all.
	Limit int32 `json:"limit,omitempty"`
}

type Message struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

type FetchMessagesResponse struct {
	Messages []Message `json:"messages"`
}

type StatsRequest struct{}

type StatsResponse struct {
	Conversations int64 `json:"conversations"`
	Contacts      int64 `json:"contacts"`
	Messages      int64 `json:"messages"`
	Online        int64 `json:"online"`
}
