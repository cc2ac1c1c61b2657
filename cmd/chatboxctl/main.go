package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/matheus3301/chatbox/internal/config"
	"github.com/matheus3301/chatbox/internal/directory"
	"github.com/matheus3301/chatbox/internal/identity"
	"github.com/matheus3301/chatbox/internal/paths"
	"github.com/spf13/pflag"
)

type contactRow struct {
	Contact         string `json:"contact"`
	ConversationKey string `json:"conversationKey"`
}

type messageRow struct {
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	MessageID string    `json:"messageId"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

func main() {
	flags := pflag.NewFlagSet("chatboxctl", pflag.ContinueOnError)
	flags.Usage = printUsage
	addrFlag := flags.String("addr", "", "directory gRPC address (default from client config)")
	configPath := flags.String("config", paths.ConfigPath(), "client config file")
	jsonFlag := flags.Bool("json", false, "output in JSON format")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		os.Exit(2)
	}

	args := flags.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	addr := *addrFlag
	if addr == "" {
		cfg, err := config.LoadClient(*configPath)
		if err != nil {
			fail(err)
		}
		addr = cfg.DirectoryAddr
	}

	c, err := directory.Dial(addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to directory at %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "contacts":
		switch {
		case len(args) == 3 && args[1] == "list":
			cmdContactsList(ctx, c, args[2], *jsonFlag)
		case len(args) == 4 && args[1] == "add":
			cmdContactsAdd(ctx, c, args[2], args[3], *jsonFlag)
		default:
			fmt.Fprintln(os.Stderr, "usage: chatboxctl contacts <list <mobile>|add <mobile> <contact>>")
			os.Exit(1)
		}
	case "history":
		if len(args) < 2 || len(args) > 3 {
			fmt.Fprintln(os.Stderr, "usage: chatboxctl history <conversation-key> [limit]")
			os.Exit(1)
		}
		limit := 0
		if len(args) == 3 {
			n, err := strconv.Atoi(args[2])
			if err != nil || n < 0 {
				fail(fmt.Errorf("invalid limit %q", args[2]))
			}
			limit = n
		}
		cmdHistory(ctx, c, args[1], limit, *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: chatboxctl [--addr <host:port>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                          Show relay health and counters")
	fmt.Fprintln(os.Stderr, "  contacts list <mobile>          List the contacts of a mobile number")
	fmt.Fprintln(os.Stderr, "  contacts add <mobile> <contact> Create or fetch a contact")
	fmt.Fprintln(os.Stderr, "  history <key> [limit]           Show the stored messages of a conversation")
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func parseIdentity(raw string) identity.Identity {
	id, err := identity.Parse(raw)
	if err != nil {
		fail(err)
	}
	return id
}

func cmdStatus(ctx context.Context, c *directory.Client, jsonOut bool) {
	health, err := c.Health(ctx)
	if err != nil {
		fail(err)
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(map[string]any{"health": health.String(), "stats": stats})
		return
	}
	fmt.Printf("Health:        %s\n", health)
	fmt.Printf("Online:        %d\n", stats.Online)
	fmt.Printf("Conversations: %d\n", stats.Conversations)
	fmt.Printf("Contacts:      %d\n", stats.Contacts)
	fmt.Printf("Messages:      %d\n", stats.Messages)
}

func cmdContactsList(ctx context.Context, c *directory.Client, owner string, jsonOut bool) {
	list, err := c.List(ctx, parseIdentity(owner))
	if err != nil {
		fail(err)
	}
	rows := make([]contactRow, 0, len(list))
	for _, ct := range list {
		rows = append(rows, contactRow{Contact: ct.Identity.String(), ConversationKey: ct.ConversationKey})
	}
	if jsonOut {
		outputJSON(rows)
		return
	}
	if len(rows) == 0 {
		fmt.Println("No contacts found.")
		return
	}
	for _, r := range rows {
		fmt.Printf("%-12s %s\n", r.Contact, r.ConversationKey)
	}
}

func cmdContactsAdd(ctx context.Context, c *directory.Client, owner, counterpart string, jsonOut bool) {
	ct, err := c.CreateOrFetch(ctx, parseIdentity(owner), parseIdentity(counterpart), "")
	if err != nil {
		fail(err)
	}
	row := contactRow{Contact: ct.Identity.String(), ConversationKey: ct.ConversationKey}
	if jsonOut {
		outputJSON(row)
		return
	}
	fmt.Printf("%s -> %s\n", row.Contact, row.ConversationKey)
}

func cmdHistory(ctx context.Context, c *directory.Client, key string, limit int, jsonOut bool) {
	msgs, err := c.FetchMessages(ctx, key, limit)
	if err != nil {
		fail(err)
	}
	rows := make([]messageRow, 0, len(msgs))
	for _, m := range msgs {
		rows = append(rows, messageRow{Sender: m.Sender.String(), Message: m.Content, MessageID: m.ID, CreatedAt: m.At})
	}
	if jsonOut {
		outputJSON(rows)
		return
	}
	if len(rows) == 0 {
		fmt.Println("No messages.")
		return
	}
	for _, r := range rows {
		ts := "-"
		if !r.CreatedAt.IsZero() {
			ts = r.CreatedAt.Local().Format(time.DateTime)
		}
		fmt.Printf("%s  %-12s %s\n", ts, r.Sender, r.Message)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
