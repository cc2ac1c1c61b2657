// Package directory is the client side of the relay's directory service.
package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/chatbox/internal/api"
	"github.com/matheus3301/chatbox/internal/contacts"
	"github.com/matheus3301/chatbox/internal/conversation"
	"github.com/matheus3301/chatbox/internal/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Client talks to the directory service. It satisfies contacts.Directory and
// also serves conversation history.
type Client struct {
	conn   *grpc.ClientConn
	api    *api.DirectoryClient
	health healthpb.HealthClient
}

// Dial creates a client for the directory at addr ("host:port" or
// "unix:///path"). The connection is established lazily.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(api.CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial directory %s: %w", addr, err)
	}
	return &Client{
		conn:   conn,
		api:    api.NewDirectoryClient(conn),
		health: healthpb.NewHealthClient(conn),
	}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) CreateOrFetch(ctx context.Context, owner, counterpart identity.Identity, hint string) (contacts.Contact, error) {
	resp, err := c.api.CreateOrFetchContact(ctx, &api.CreateOrFetchContactRequest{
		MobileNo:        owner.String(),
		ContactMobileNo: counterpart.String(),
		ConversationKey: hint,
	})
	if err != nil {
		return contacts.Contact{}, err
	}
	return contacts.Contact{
		Identity:        identity.Identity(resp.ContactMobileNo),
		ConversationKey: resp.ConversationKey,
	}, nil
}

func (c *Client) List(ctx context.Context, owner identity.Identity) ([]contacts.Contact, error) {
	resp, err := c.api.ListContacts(ctx, &api.ListContactsRequest{MobileNo: owner.String()})
	if err != nil {
		return nil, err
	}
	out := make([]contacts.Contact, 0, len(resp.Contacts))
	for _, ct := range resp.Contacts {
		id, err := identity.Parse(ct.ContactMobileNo)
		if err != nil {
			continue
		}
		out = append(out, contacts.Contact{Identity: id, ConversationKey: ct.ConversationKey})
	}
	return out, nil
}

// FetchMessages returns the conversation history in chronological order.
// Statuses are left unset: only the caller knows which side is local.
func (c *Client) FetchMessages(ctx context.Context, conversationKey string, limit int) ([]conversation.Message, error) {
	resp, err := c.api.FetchMessages(ctx, &api.FetchMessagesRequest{ConversationKey: conversationKey, Limit: int32(limit)})
	if err != nil {
		return nil, err
	}
	out := make([]conversation.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msg := conversation.Message{
			Sender:  identity.Identity(m.Sender),
			Content: m.Message,
			ID:      m.MessageID,
		}
		if m.CreatedAt > 0 {
			msg.At = time.UnixMilli(m.CreatedAt)
		}
		out = append(out, msg)
	}
	return out, nil
}

// Stats returns the relay's row counts and presence.
func (c *Client) Stats(ctx context.Context) (*api.StatsResponse, error) {
	return c.api.Stats(ctx, &api.StatsRequest{})
}

// Health reports the serving status of the relay.
func (c *Client) Health(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.Status, nil
}
