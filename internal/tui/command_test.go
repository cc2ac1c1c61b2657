package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    Command
		wantErr bool
	}{
		{"add 9000000002", Command{Name: "add", Args: "9000000002"}, false},
		{":ADD   9000000002  ", Command{Name: "add", Args: "9000000002"}, false},
		{"o 9000000003", Command{Name: "open", Args: "9000000003"}, false},
		{"retry", Command{Name: "retry"}, false},
		{"q", Command{Name: "quit"}, false},
		{"logout now", Command{Name: "logout", Args: "now"}, true},
		{"add", Command{Name: "add"}, true},
		{"add 1 2", Command{Name: "add", Args: "1 2"}, true},
		{"", Command{}, true},
		{"search hi", Command{Name: "search", Args: "hi"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseCommand(tt.in)
			if got != tt.want {
				t.Fatalf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if err := got.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
