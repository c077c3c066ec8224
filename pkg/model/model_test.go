package model

import (
	"strings"
	"testing"
	"time"
)

func timeNow() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid simple", "alice", nil},
		{"valid with numbers", "user123", nil},
		{"valid with underscore", "my_user", nil},
		{"valid with hyphen", "my-user", nil},
		{"valid max length", strings.Repeat("a", MaxUsernameLength), nil},
		{"empty", "", ErrUsernameEmpty},
		{"too long", strings.Repeat("a", MaxUsernameLength+1), ErrUsernameTooLong},
		{"contains space", "has space", ErrUsernameInvalidChars},
		{"contains dot", "user.name", ErrUsernameInvalidChars},
		{"unicode letter", "ñoño", ErrUsernameInvalidChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if err != tt.wantErr {
				t.Errorf("ValidateUsername(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestParseRoleSet(t *testing.T) {
	rs := ParseRoleSet([]string{"user", "admin", "admin", "bogus"})
	if !rs.Has(RoleUser) || !rs.Has(RoleAdmin) {
		t.Fatalf("ParseRoleSet: missing expected roles in %v", rs)
	}
	if len(rs) != 2 {
		t.Fatalf("ParseRoleSet: expected duplicates and unknowns collapsed, got %v", rs)
	}
	if !rs.Admin() {
		t.Fatalf("ParseRoleSet: expected admin authority")
	}
	if (RoleSet{RoleUser, RoleHost}).Admin() {
		t.Fatalf("RoleSet.Admin: host must not carry admin authority")
	}
}

func TestRoomValidate(t *testing.T) {
	tests := []struct {
		name    string
		room    Room
		wantErr error
	}{
		{"valid", Room{Name: "general", Capacity: 50}, nil},
		{"empty name", Room{Name: "  ", Capacity: 50}, ErrRoomNameEmpty},
		{"name too long", Room{Name: strings.Repeat("x", MaxRoomNameLength+1), Capacity: 50}, ErrRoomNameTooLong},
		{"desc too long", Room{Name: "ok", Description: strings.Repeat("x", MaxRoomDescLength+1), Capacity: 50}, ErrRoomDescTooLong},
		{"zero capacity", Room{Name: "ok", Capacity: 0}, ErrRoomCapacity},
		{"capacity too large", Room{Name: "ok", Capacity: MaxRoomCapacity + 1}, ErrRoomCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.room.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRoomNextOwner(t *testing.T) {
	t.Run("first surviving host wins", func(t *testing.T) {
		r := Room{Owner: "O", Hosts: []string{"O", "H"}, Members: []string{"H", "M"}}
		successor, promote := r.NextOwner("O")
		if successor != "H" || promote {
			t.Fatalf("NextOwner = (%q, %v), want (H, false)", successor, promote)
		}
	})

	t.Run("first member promoted when no hosts remain", func(t *testing.T) {
		r := Room{Owner: "O", Hosts: []string{"O"}, Members: []string{"M", "N"}}
		successor, promote := r.NextOwner("O")
		if successor != "M" || !promote {
			t.Fatalf("NextOwner = (%q, %v), want (M, true)", successor, promote)
		}
	})

	t.Run("host no longer a member is skipped", func(t *testing.T) {
		r := Room{Owner: "O", Hosts: []string{"O", "gone", "H"}, Members: []string{"H"}}
		successor, promote := r.NextOwner("O")
		if successor != "H" || promote {
			t.Fatalf("NextOwner = (%q, %v), want (H, false)", successor, promote)
		}
	})

	t.Run("no members left", func(t *testing.T) {
		r := Room{Owner: "O", Hosts: []string{"O"}, Members: nil}
		successor, _ := r.NextOwner("O")
		if successor != "" {
			t.Fatalf("NextOwner = %q, want empty", successor)
		}
	})
}

func TestRoomMembership(t *testing.T) {
	r := Room{Name: "general", Capacity: 10}
	if !r.AddMember("a") {
		t.Fatalf("AddMember: first add should report change")
	}
	if r.AddMember("a") {
		t.Fatalf("AddMember: duplicate add must be idempotent")
	}
	r.AddMember("b")
	r.Hosts = append(r.Hosts, "a")

	r.RemoveMember("a")
	r.RemoveHost("a")
	if r.IsMember("a") || r.IsHost("a") {
		t.Fatalf("remove did not clear membership/host for a: %+v", r)
	}
	if !r.IsMember("b") {
		t.Fatalf("remove clobbered unrelated member")
	}
}

func TestPollVote(t *testing.T) {
	p, err := NewPoll("p1", "Tabs or spaces?", []string{"tabs", "spaces"}, "alice", timeNow())
	if err != nil {
		t.Fatalf("NewPoll: %v", err)
	}

	if err := p.Vote("u1", 0); err != nil {
		t.Fatalf("Vote: %v", err)
	}
	if err := p.Vote("u1", 1); err != ErrAlreadyVoted {
		t.Fatalf("Vote repeat: got %v, want ErrAlreadyVoted", err)
	}
	if err := p.Vote("u2", 5); err != ErrInvalidOption {
		t.Fatalf("Vote out of range: got %v, want ErrInvalidOption", err)
	}
	if err := p.Vote("u2", -1); err != ErrInvalidOption {
		t.Fatalf("Vote negative: got %v, want ErrInvalidOption", err)
	}
	if err := p.Vote("u2", 1); err != nil {
		t.Fatalf("Vote second user: %v", err)
	}

	sum := 0
	for _, v := range p.Votes {
		sum += v
	}
	if sum != len(p.Voters) {
		t.Fatalf("invariant broken: sum(votes)=%d voters=%d", sum, len(p.Voters))
	}
	if got := p.Tally(); got[0] != 1 || got[1] != 1 {
		t.Fatalf("Tally = %v, want [1 1]", got)
	}
}

func TestNewPollValidation(t *testing.T) {
	if _, err := NewPoll("p", "", []string{"a", "b"}, "x", timeNow()); err != ErrPollQuestionEmpty {
		t.Fatalf("empty question: got %v", err)
	}
	if _, err := NewPoll("p", "q", []string{"only"}, "x", timeNow()); err != ErrPollTooFewOptions {
		t.Fatalf("one option: got %v", err)
	}
}
