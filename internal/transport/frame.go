package transport

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/matheus3301/chatbox/internal/identity"
)

// Values of the messageType field.
const (
	TypeAck     = "ACK"
	TypeErr     = "ERR"
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeReject  = "REJECT"
)

// ErrInvalidFrame indicates a payload that is not a JSON object.
var ErrInvalidFrame = errors.New("transport: invalid frame")

// SendFrame is written by a client to send a message.
type SendFrame struct {
	To              identity.Identity `json:"to"`
	Message         string            `json:"message"`
	MessageID       string            `json:"messageId"`
	ConversationKey string            `json:"conversationKey,omitempty"`
}

// DeliveryFrame carries an inbound message to its recipient.
type DeliveryFrame struct {
	From            identity.Identity `json:"from"`
	Message         string            `json:"message"`
	MessageID       string            `json:"messageId"`
	ConversationKey string            `json:"conversationKey,omitempty"`
}

// StatusFrame acknowledges (ACK) or rejects (ERR) a previously sent message.
// To is the recipient of the original message, i.e. the conversation key on
// the sender's side.
type StatusFrame struct {
	MessageType string            `json:"messageType"`
	To          identity.Identity `json:"to"`
	MessageID   string            `json:"messageId"`
	Reason      string            `json:"reason,omitempty"`
}

// HelloFrame opens the handshake: the client announces its identity.
type HelloFrame struct {
	MessageType string            `json:"messageType"`
	From        identity.Identity `json:"from"`
}

// WelcomeFrame confirms a handshake; RejectFrame refuses it.
type WelcomeFrame struct {
	MessageType string            `json:"messageType"`
	To          identity.Identity `json:"to"`
}

type RejectFrame struct {
	MessageType string `json:"messageType"`
	Reason      string `json:"reason"`
}

// Kind classifies a decoded frame.
type Kind int

const (
	KindUnknown Kind = iota
	KindSend
	KindDelivery
	KindStatus
	KindHello
	KindWelcome
	KindReject
)

func (k Kind) String() string {
	switch k {
	case KindSend:
		return "send"
	case KindDelivery:
		return "delivery"
	case KindStatus:
		return "status"
	case KindHello:
		return "hello"
	case KindWelcome:
		return "welcome"
	case KindReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Frame is the union of every field any frame may carry. It is only used for
// decoding; writers use the typed frames above.
type Frame struct {
	MessageType     string            `json:"messageType"`
	From            identity.Identity `json:"from"`
	To              identity.Identity `json:"to"`
	Message         string            `json:"message"`
	MessageID       string            `json:"messageId"`
	ConversationKey string            `json:"conversationKey"`
	Reason          string            `json:"reason"`
}

// Decode parses one frame.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	return f, nil
}

// Kind classifies f by its messageType, falling back to which addressing
// field is present for untyped message frames.
func (f Frame) Kind() Kind {
	switch f.MessageType {
	case TypeAck, TypeErr:
		return KindStatus
	case TypeHello:
		return KindHello
	case TypeWelcome:
		return KindWelcome
	case TypeReject:
		return KindReject
	case "":
		switch {
		case f.From != "":
			return KindDelivery
		case f.To != "":
			return KindSend
		}
	}
	return KindUnknown
}

func (f Frame) Delivery() DeliveryFrame {
	return DeliveryFrame{From: f.From, Message: f.Message, MessageID: f.MessageID, ConversationKey: f.ConversationKey}
}

func (f Frame) Status() StatusFrame {
	return StatusFrame{MessageType: f.MessageType, To: f.To, MessageID: f.MessageID, Reason: f.Reason}
}

func (f Frame) Send() SendFrame {
	return SendFrame{To: f.To, Message: f.Message, MessageID: f.MessageID, ConversationKey: f.ConversationKey}
}

// Acked reports whether a status frame is a positive acknowledgement.
func (s StatusFrame) Acked() bool {
	return s.MessageType == TypeAck
}
