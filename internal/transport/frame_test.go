package transport

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeKinds(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{"delivery", `{"from":"9000000002","message":"hi","messageId":"m1"}`, KindDelivery},
		{"delivery with key", `{"from":"9000000002","message":"hi","messageId":"m1","conversationKey":"k"}`, KindDelivery},
		{"ack", `{"messageType":"ACK","to":"9000000002","messageId":"m1"}`, KindStatus},
		{"err", `{"messageType":"ERR","to":"9000000002","messageId":"m1"}`, KindStatus},
		{"send", `{"to":"9000000002","message":"yo","messageId":"m2"}`, KindSend},
		{"hello", `{"messageType":"HELLO","from":"9000000001"}`, KindHello},
		{"welcome", `{"messageType":"WELCOME","to":"9000000001"}`, KindWelcome},
		{"reject", `{"messageType":"REJECT","reason":"busy"}`, KindReject},
		{"unknown type", `{"messageType":"PING"}`, KindUnknown},
		{"empty object", `{}`, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Decode([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got := f.Kind(); got != tt.want {
				t.Errorf("Kind() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, raw := range []string{``, `not json`, `[1,2]`, `{"from":`} {
		if _, err := Decode([]byte(raw)); !errors.Is(err, ErrInvalidFrame) {
			t.Errorf("Decode(%q) error = %v, want ErrInvalidFrame", raw, err)
		}
	}
}

func TestSendFrameWireFormat(t *testing.T) {
	data, err := json.Marshal(SendFrame{To: "9000000002", Message: "yo", MessageID: "m1"})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"to":"9000000002","message":"yo","messageId":"m1"}`
	if string(data) != want {
		t.Errorf("wire = %s, want %s", data, want)
	}
}

func TestStatusAccessors(t *testing.T) {
	f, _ := Decode([]byte(`{"messageType":"ERR","to":"9000000002","messageId":"m1","reason":"recipient offline"}`))
	st := f.Status()
	if st.Acked() {
		t.Error("ERR frame reported as acked")
	}
	if st.Reason != "recipient offline" || st.To != "9000000002" || st.MessageID != "m1" {
		t.Errorf("Status() = %+v", st)
	}
}
