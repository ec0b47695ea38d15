package p2p_test

import (
	"encoding/json"
	"testing"

	"github.com/ledgerforge/node/internal/p2p"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	line, err := p2p.Encode(p2p.SendPeers, p2p.SendPeersPayload{Peers: []string{"a:1", "b:2"}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if line[len(line)-1] != '\n' {
		t.Fatal("Encode did not terminate the line with a newline")
	}

	msg, ok := p2p.Decode(line[:len(line)-1])
	if !ok {
		t.Fatal("Decode rejected a well-formed message")
	}
	if msg.Type != p2p.SendPeers {
		t.Fatalf("Type = %v, want SendPeers", msg.Type)
	}

	var payload p2p.SendPeersPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(payload.Peers) != 2 || payload.Peers[0] != "a:1" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	if _, ok := p2p.Decode("not json"); ok {
		t.Fatal("Decode accepted malformed JSON")
	}
}

func TestEncodeWithoutPayload(t *testing.T) {
	line, err := p2p.Encode(p2p.GetPeers, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	msg, ok := p2p.Decode(line[:len(line)-1])
	if !ok {
		t.Fatal("Decode rejected a payload-less message")
	}
	if msg.Type != p2p.GetPeers {
		t.Fatalf("Type = %v, want GetPeers", msg.Type)
	}
}
