package api

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/chatbox/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	grpcstatus "google.golang.org/grpc/status"
)

type fixedPresence int

func (p fixedPresence) Online() int { return int(p) }

func startDirectory(t *testing.T) (*DirectoryClient, *store.DB, *grpc.ClientConn) {
	t.Helper()
	// Use a short path to avoid the 104-char Unix socket limit.
	tmpDir, err := os.MkdirTemp("/tmp", "chatbox-api-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })

	db, err := store.Open(filepath.Join(tmpDir, "relay.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(nil); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	socketPath := filepath.Join(tmpDir, "d.sock")
	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatal(err)
	}
	srv := grpc.NewServer()
	RegisterDirectoryServer(srv, NewDirectoryService(db, fixedPresence(3), nil))
	healthpb.RegisterHealthServer(srv, health.NewServer())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("unix://"+socketPath, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewDirectoryClient(conn), db, conn
}

func TestCreateOrFetchContactIdempotent(t *testing.T) {
	client, _, _ := startDirectory(t)
	ctx := context.Background()

	first, err := client.CreateOrFetchContact(ctx, &CreateOrFetchContactRequest{MobileNo: "9000000001", ContactMobileNo: "9000000002"})
	if err != nil {
		t.Fatalf("CreateOrFetchContact() error = %v", err)
	}
	if first.ConversationKey == "" || first.ContactMobileNo != "9000000002" {
		t.Fatalf("contact = %+v", first)
	}
	second, err := client.CreateOrFetchContact(ctx, &CreateOrFetchContactRequest{MobileNo: "9000000001", ContactMobileNo: "9000000002"})
	if err != nil {
		t.Fatal(err)
	}
	if second.ConversationKey != first.ConversationKey {
		t.Errorf("second key = %q, want %q", second.ConversationKey, first.ConversationKey)
	}
}

func TestCreateOrFetchContactAdoptsHint(t *testing.T) {
	client, _, _ := startDirectory(t)
	c, err := client.CreateOrFetchContact(context.Background(), &CreateOrFetchContactRequest{
		MobileNo: "9000000002", ContactMobileNo: "9000000001", ConversationKey: "relay-key",
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.ConversationKey != "relay-key" {
		t.Errorf("ConversationKey = %q, want relay-key", c.ConversationKey)
	}
}

func TestInvalidIdentities(t *testing.T) {
	client, _, _ := startDirectory(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"bad owner", func() error {
			_, err := client.CreateOrFetchContact(ctx, &CreateOrFetchContactRequest{MobileNo: "123", ContactMobileNo: "9000000002"})
			return err
		}},
		{"bad contact", func() error {
			_, err := client.CreateOrFetchContact(ctx, &CreateOrFetchContactRequest{MobileNo: "9000000001", ContactMobileNo: "abcdefghij"})
			return err
		}},
		{"bad list owner", func() error {
			_, err := client.ListContacts(ctx, &ListContactsRequest{MobileNo: ""})
			return err
		}},
		{"missing key", func() error {
			_, err := client.FetchMessages(ctx, &FetchMessagesRequest{})
			return err
		}},
		{"negative limit", func() error {
			_, err := client.FetchMessages(ctx, &FetchMessagesRequest{ConversationKey: "k", Limit: -1})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := grpcstatus.Code(tt.call()); code != codes.InvalidArgument {
				t.Errorf("code = %s, want InvalidArgument", code)
			}
		})
	}
}

func TestListContactsAndFetchMessages(t *testing.T) {
	client, db, _ := startDirectory(t)
	ctx := context.Background()

	for _, c := range []string{"9000000003", "9000000002"} {
		if _, err := client.CreateOrFetchContact(ctx, &CreateOrFetchContactRequest{MobileNo: "9000000001", ContactMobileNo: c}); err != nil {
			t.Fatal(err)
		}
	}
	list, err := client.ListContacts(ctx, &ListContactsRequest{MobileNo: "9000000001"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Contacts) != 2 || list.Contacts[0].ContactMobileNo != "9000000003" {
		t.Fatalf("contacts = %+v, want creation order", list.Contacts)
	}

	key := list.Contacts[1].ConversationKey
	_, _ = db.AppendMessage(&store.Message{ConversationKey: key, MessageID: "m1", Sender: "9000000002", Recipient: "9000000001", Body: "hi"})
	_, _ = db.AppendMessage(&store.Message{ConversationKey: key, MessageID: "m2", Sender: "9000000001", Recipient: "9000000002", Body: "yo"})

	resp, err := client.FetchMessages(ctx, &FetchMessagesRequest{ConversationKey: key})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Messages) != 2 || resp.Messages[0].MessageID != "m1" || resp.Messages[1].Message != "yo" {
		t.Errorf("messages = %+v", resp.Messages)
	}

	empty, err := client.FetchMessages(ctx, &FetchMessagesRequest{ConversationKey: "unknown"})
	if err != nil {
		t.Fatal(err)
	}
	if empty.Messages == nil || len(empty.Messages) != 0 {
		t.Errorf("unknown conversation = %+v, want empty list", empty.Messages)
	}
}

func TestStatsAndHealth(t *testing.T) {
	client, _, conn := startDirectory(t)
	ctx := context.Background()
	_, _ = client.CreateOrFetchContact(ctx, &CreateOrFetchContactRequest{MobileNo: "9000000001", ContactMobileNo: "9000000002"})

	st, err := client.Stats(ctx, &StatsRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if st.Conversations != 1 || st.Contacts != 1 || st.Online != 3 {
		t.Errorf("Stats() = %+v", st)
	}

	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{}, grpc.CallContentSubtype(CodecName))
	if err != nil {
		t.Fatalf("health check error = %v", err)
	}
	if hc.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health = %s, want SERVING", hc.Status)
	}
}

func TestCodec(t *testing.T) {
	var c jsonCodec
	data, err := c.Marshal(&CreateOrFetchContactRequest{MobileNo: "9000000001", ContactMobileNo: "9000000002"})
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"mobileNo":"9000000001","contactMobileNo":"9000000002"}`; string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	data, err = c.Marshal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING})
	if err != nil {
		t.Fatal(err)
	}
	var back healthpb.HealthCheckResponse
	if err := c.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal(protojson) error = %v", err)
	}
	if back.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("round trip status = %s", back.Status)
	}
}
