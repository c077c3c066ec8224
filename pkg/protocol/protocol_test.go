package protocol

import "testing"

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"type":"message","roomId":"room-1","content":"hi"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Type != TypeMessage || env.RoomID != "room-1" || env.Content != "hi" {
		t.Fatalf("Decode: unexpected envelope %+v", env)
	}
}

func TestDecodeRejects(t *testing.T) {
	if _, err := Decode([]byte(`{`)); err == nil {
		t.Fatalf("Decode: expected error for malformed JSON")
	}
	if _, err := Decode([]byte(`{"roomId":"r"}`)); err == nil {
		t.Fatalf("Decode: expected error for missing type")
	}
}

func TestDecodeVotePoll(t *testing.T) {
	env, err := Decode([]byte(`{"type":"vote_poll","roomId":"r","pollId":"p","optionIndex":0}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.OptionIndex == nil || *env.OptionIndex != 0 {
		t.Fatalf("Decode: optionIndex 0 must survive as a present value, got %+v", env.OptionIndex)
	}
}
