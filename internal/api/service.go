package api

import (
	"context"

	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/matheus3301/chatbox/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Presence reports how many identities are connected to the relay.
type Presence interface {
	Online() int
}

// DirectoryService implements DirectoryServer on top of the relay store.
type DirectoryService struct {
	db       *store.DB
	presence Presence
	logger   *zap.Logger
}

// NewDirectoryService creates a directory service. presence may be nil.
func NewDirectoryService(db *store.DB, presence Presence, logger *zap.Logger) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{db: db, presence: presence, logger: logger.Named("directory")}
}

func (s *DirectoryService) CreateOrFetchContact(_ context.Context, req *CreateOrFetchContactRequest) (*Contact, error) {
	owner, err := identity.Parse(req.MobileNo)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "mobileNo: %v", err)
	}
	contact, err := identity.Parse(req.ContactMobileNo)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "contactMobileNo: %v", err)
	}

	c, created, err := s.db.CreateOrFetchContact(owner.String(), contact.String(), req.ConversationKey)
	if err != nil {
		s.logger.Error("create contact failed", zap.String("owner", owner.String()), zap.String("contact", contact.String()), zap.Error(err))
		return nil, grpcstatus.Errorf(codes.Internal, "create contact: %v", err)
	}
	if created {
		s.logger.Info("contact created",
			zap.String("owner", c.Owner),
			zap.String("contact", c.Contact),
			zap.String("conversation_key", c.ConversationKey))
	}
	return &Contact{MobileNo: c.Owner, ContactMobileNo: c.Contact, ConversationKey: c.ConversationKey}, nil
}

func (s *DirectoryService) ListContacts(_ context.Context, req *ListContactsRequest) (*ListContactsResponse, error) {
	owner, err := identity.Parse(req.MobileNo)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "mobileNo: %v", err)
	}
	rows, err := s.db.ListContacts(owner.String())
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list contacts: %v", err)
	}

	resp := &ListContactsResponse{Contacts: make([]Contact, 0, len(rows))}
	for _, c := range rows {
		resp.Contacts = append(resp.Contacts, Contact{MobileNo: c.Owner, ContactMobileNo: c.Contact, ConversationKey: c.ConversationKey})
	}
	return resp, nil
}

func (s *DirectoryService) FetchMessages(_ context.Context, req *FetchMessagesRequest) (*FetchMessagesResponse, error) {
	if req.ConversationKey == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "conversationKey is required")
	}
	if req.Limit < 0 {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "limit %d is negative", req.Limit)
	}
	rows, err := s.db.ListMessages(req.ConversationKey, int(req.Limit))
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "fetch messages: %v", err)
	}

	resp := &FetchMessagesResponse{Messages: make([]Message, 0, len(rows))}
	for _, m := range rows {
		resp.Messages = append(resp.Messages, Message{
			Sender:    m.Sender,
			Message:   m.Body,
			MessageID: m.MessageID,
			CreatedAt: m.CreatedAt,
		})
	}
	return resp, nil
}

func (s *DirectoryService) Stats(_ context.Context, _ *StatsRequest) (*StatsResponse, error) {
	st, err := s.db.Stats()
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "stats: %v", err)
	}
	resp := &StatsResponse{
		Conversations: st.Conversations,
		Contacts:      st.Contacts,
		Messages:      st.Messages,
	}
	if s.presence != nil {
		resp.Online = int64(s.presence.Online())
	}
	return resp, nil
}
