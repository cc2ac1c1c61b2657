package directory

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/chatbox/internal/api"
	"github.com/matheus3301/chatbox/internal/contacts"
	"github.com/matheus3301/chatbox/internal/engine"
	"github.com/matheus3301/chatbox/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var (
	_ contacts.Directory = (*Client)(nil)
	_ engine.Directory   = (*Client)(nil)
)

func startServer(t *testing.T) (*Client, *store.DB) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("/tmp", "chatbox-dir-*")
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
	api.RegisterDirectoryServer(srv, api.NewDirectoryService(db, nil, nil))
	healthpb.RegisterHealthServer(srv, health.NewServer())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := Dial("unix://" + socketPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, db
}

func TestCreateListFetch(t *testing.T) {
	c, db := startServer(t)
	ctx := context.Background()

	ct, err := c.CreateOrFetch(ctx, "9000000001", "9000000002", "")
	if err != nil {
		t.Fatalf("CreateOrFetch() error = %v", err)
	}
	if ct.Identity != "9000000002" || ct.ConversationKey == "" {
		t.Fatalf("contact = %+v", ct)
	}

	list, err := c.List(ctx, "9000000001")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0] != ct {
		t.Errorf("List() = %+v, want [%+v]", list, ct)
	}

	_, _ = db.AppendMessage(&store.Message{ConversationKey: ct.ConversationKey, MessageID: "m1", Sender: "9000000002", Recipient: "9000000001", Body: "hi"})
	msgs, err := c.FetchMessages(ctx, ct.ConversationKey, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Sender != "9000000002" || msgs[0].Content != "hi" || msgs[0].ID != "m1" {
		t.Errorf("FetchMessages() = %+v", msgs)
	}
	if msgs[0].Status != "" {
		t.Errorf("Status = %q, want unset", msgs[0].Status)
	}
	if msgs[0].At.IsZero() {
		t.Error("At not populated from createdAt")
	}
}

func TestHealthAndStats(t *testing.T) {
	c, _ := startServer(t)
	ctx := context.Background()

	st, err := c.Health(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Health() = %s, want SERVING", st)
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Online != 0 || stats.Messages != 0 {
		t.Errorf("Stats() = %+v, want zeros", stats)
	}
}

func TestUnreachableDirectory(t *testing.T) {
	c, err := Dial("unix:///tmp/chatbox-does-not-exist.sock")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := c.List(ctx, "9000000001"); err == nil {
		t.Error("List() succeeded against a missing server")
	}
}
