package server

import (
	"testing"
	"time"

	"github.com/mlaroche/chatnet/pkg/model"
	"github.com/mlaroche/chatnet/pkg/protocol"
	"github.com/mlaroche/chatnet/pkg/rbac"
)

func TestKickCommand(t *testing.T) {
	srv, st := newTestServer(t)
	owner, ownerConn := connect(t, srv, st, "alice")
	target, targetConn := connect(t, srv, st, "bob")
	bystander, bystanderConn := connect(t, srv, st, "carol")

	roomID := createRoom(t, srv, owner, ownerConn, "general")
	joinRoom(t, srv, target, roomID)
	joinRoom(t, srv, bystander, roomID)

	sendChat(srv, owner, roomID, "/kick bob being rude")

	kicked := targetConn.last(protocol.TypeKicked)
	if kicked == nil {
		t.Fatal("target did not receive kicked notice")
	}
	if kicked["reason"] != "being rude" {
		t.Fatalf("reason = %v", kicked["reason"])
	}

	notice := bystanderConn.last(protocol.TypeUserKicked)
	if notice == nil {
		t.Fatal("room did not receive user_kicked broadcast")
	}
	if notice["username"] != "bob" || notice["by"] != "alice" {
		t.Fatalf("user_kicked = %v", notice)
	}

	// The confirmation is echoed into the room in the AI's voice, after
	// the eviction, so the target never sees it.
	echo := bystanderConn.last(protocol.TypeMessage)
	if echo == nil || echo["message"] != "bob has been kicked from the room. Reason: being rude" {
		t.Fatalf("room echo = %v", echo)
	}
	if len(targetConn.ofType(protocol.TypeMessage)) != 0 {
		t.Fatal("kicked user received the room echo")
	}

	room, _ := srv.rooms.Snapshot(roomID)
	if room.IsMember(target.UserID) {
		t.Fatal("target still a member after kick")
	}

	// Kicked is not banned: rejoin succeeds.
	joinRoom(t, srv, target, roomID)
	room, _ = srv.rooms.Snapshot(roomID)
	if !room.IsMember(target.UserID) {
		t.Fatal("rejoin after kick failed")
	}
}

func TestKickPermissionDenied(t *testing.T) {
	srv, st := newTestServer(t)
	owner, ownerConn := connect(t, srv, st, "alice")
	plain, plainConn := connect(t, srv, st, "bob")
	victim, victimConn := connect(t, srv, st, "carol")

	roomID := createRoom(t, srv, owner, ownerConn, "general")
	joinRoom(t, srv, plain, roomID)
	joinRoom(t, srv, victim, roomID)

	sendChat(srv, plain, roomID, "/kick carol")

	resp := plainConn.last(protocol.TypeCommandResponse)
	if resp == nil || resp["message"] != "You do not have permission to use this command" {
		t.Fatalf("command_response = %v", resp)
	}

	// The denial stays between the server and the invoker.
	if len(victimConn.ofType(protocol.TypeUserKicked)) != 0 {
		t.Fatal("denied kick produced a user_kicked broadcast")
	}
	if len(ownerConn.ofType(protocol.TypeMessage)) != 0 {
		t.Fatal("denial was echoed into the room")
	}

	room, _ := srv.rooms.Snapshot(roomID)
	if !room.IsMember(victim.UserID) {
		t.Fatal("denied kick removed the target")
	}
}

func TestModerationTargetImmunity(t *testing.T) {
	srv, st := newTestServer(t)
	owner, ownerConn := connect(t, srv, st, "alice")
	admin, adminConn := connect(t, srv, st, "root", model.RoleAdmin)

	roomID := createRoom(t, srv, owner, ownerConn, "general")
	joinRoom(t, srv, admin, roomID)

	// Even an admin cannot touch the room owner.
	sendChat(srv, admin, roomID, "/kick alice")
	if resp := adminConn.last(protocol.TypeCommandResponse); resp == nil || resp["message"] != "You cannot kick the room owner" {
		t.Fatalf("command_response = %v", resp)
	}

	// A non-admin moderator cannot touch an admin.
	sendChat(srv, owner, roomID, "/ban root")
	if resp := ownerConn.last(protocol.TypeCommandResponse); resp == nil || resp["message"] != "You cannot ban an admin" {
		t.Fatalf("command_response = %v", resp)
	}

	// Absent or non-member targets get their own messages.
	sendChat(srv, owner, roomID, "/kick ghost")
	if resp := ownerConn.last(protocol.TypeCommandResponse); resp == nil || resp["message"] != "User ghost not found" {
		t.Fatalf("command_response = %v", resp)
	}
	connect(t, srv, st, "dave")
	sendChat(srv, owner, roomID, "/kick dave")
	if resp := ownerConn.last(protocol.TypeCommandResponse); resp == nil || resp["message"] != "User dave is not in this room" {
		t.Fatalf("command_response = %v", resp)
	}
}

func TestKickDeniedWhenTargetPromotedMidCommand(t *testing.T) {
	srv, st := newTestServer(t)
	owner, ownerConn := connect(t, srv, st, "alice")
	target, _ := connect(t, srv, st, "bob")

	roomID := createRoom(t, srv, owner, ownerConn, "general")
	joinRoom(t, srv, target, roomID)

	// The command handler works from this snapshot, in which bob is a
	// plain member.
	stale, err := srv.rooms.Snapshot(roomID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	// The owner leaves on another connection before the kick lands,
	// promoting bob.
	if _, err := srv.rooms.Leave(roomID, owner.UserID); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	actor := rbac.Actor{ID: owner.UserID, Username: owner.Username, Roles: owner.Roles}
	res := srv.kickUser(actor, stale, "bob", "stale kick")
	if !res.silent || res.message != "You cannot kick the room owner" {
		t.Fatalf("result = %+v", res)
	}

	room, _ := srv.rooms.Snapshot(roomID)
	if room.Owner != target.UserID || !room.IsMember(target.UserID) {
		t.Fatalf("room after rejected kick: owner=%s members=%v", room.Owner, room.Members)
	}
}

func TestBanPreventsRejoin(t *testing.T) {
	srv, st := newTestServer(t)
	owner, ownerConn := connect(t, srv, st, "alice")
	target, targetConn := connect(t, srv, st, "bob")

	roomID := createRoom(t, srv, owner, ownerConn, "general")
	joinRoom(t, srv, target, roomID)

	sendChat(srv, owner, roomID, "/ban bob trolling")

	if banned := targetConn.last(protocol.TypeBanned); banned == nil {
		t.Fatal("target did not receive banned notice")
	}
	room, _ := srv.rooms.Snapshot(roomID)
	if room.IsMember(target.UserID) {
		t.Fatal("target still a member after ban")
	}

	srv.dispatch(target, &protocol.Envelope{Type: protocol.TypeJoinRoom, RoomID: roomID})
	if ev := targetConn.last("error"); ev == nil || ev["message"] != "You are banned from this room" {
		t.Fatalf("rejoin error = %v", ev)
	}
}

func TestMuteBlocksChatUntilExpiry(t *testing.T) {
	srv, st := newTestServer(t)
	owner, ownerConn := connect(t, srv, st, "alice")
	target, targetConn := connect(t, srv, st, "bob")

	roomID := createRoom(t, srv, owner, ownerConn, "general")
	joinRoom(t, srv, target, roomID)

	sendChat(srv, owner, roomID, "/mute bob 5 spam")

	muted := targetConn.last(protocol.TypeMuted)
	if muted == nil {
		t.Fatal("target did not receive muted notice")
	}
	if ownerConn.last(protocol.TypeUserMuted) == nil {
		t.Fatal("room did not receive user_muted broadcast")
	}

	sendChat(srv, target, roomID, "hello?")
	if ev := targetConn.last("error"); ev == nil || ev["message"] != "you are muted for 5 more minute(s)" {
		t.Fatalf("muted send error = %v", ev)
	}
	if len(ownerConn.ofType(protocol.TypeMessage)) != 1 {
		// The mute confirmation echo is the only room message so far.
		t.Fatal("muted user's message reached the room")
	}

	// Lift the mute on a short timer instead of waiting minutes.
	room, _ := srv.rooms.Snapshot(roomID)
	until := time.Now().Add(30 * time.Millisecond)
	if _, err := srv.rooms.Mute(room.ID, target.UserID, until); err != nil {
		t.Fatalf("Mute: %v", err)
	}
	srv.scheduleUnmute(room.ID, target.UserID, target.Username, until, 30*time.Millisecond)

	time.Sleep(150 * time.Millisecond)

	if targetConn.last(protocol.TypeUnmuted) == nil {
		t.Fatal("target did not receive unmuted notice")
	}
	if ownerConn.last(protocol.TypeUserUnmuted) == nil {
		t.Fatal("room did not receive user_unmuted broadcast")
	}

	sendChat(srv, target, roomID, "free at last")
	if msg := ownerConn.last(protocol.TypeMessage); msg == nil || msg["message"] != "free at last" {
		t.Fatalf("post-unmute message = %v", msg)
	}
}

func TestOverwrittenMuteUnmutesOnce(t *testing.T) {
	srv, st := newTestServer(t)
	owner, ownerConn := connect(t, srv, st, "alice")
	target, _ := connect(t, srv, st, "bob")

	roomID := createRoom(t, srv, owner, ownerConn, "general")
	joinRoom(t, srv, target, roomID)

	// First mute, immediately overwritten by a longer one. The first
	// timer fires against a changed expiry and must do nothing.
	first := time.Now().Add(20 * time.Millisecond)
	srv.rooms.Mute(roomID, target.UserID, first)
	srv.scheduleUnmute(roomID, target.UserID, target.Username, first, 20*time.Millisecond)

	second := time.Now().Add(60 * time.Millisecond)
	srv.rooms.Mute(roomID, target.UserID, second)
	srv.scheduleUnmute(roomID, target.UserID, target.Username, second, 60*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	room, _ := srv.rooms.Snapshot(roomID)
	if room.MuteRemaining(target.UserID, time.Now()) <= 0 {
		t.Fatal("stale timer lifted the active mute")
	}

	time.Sleep(120 * time.Millisecond)
	if n := len(ownerConn.ofType(protocol.TypeUserUnmuted)); n != 1 {
		t.Fatalf("user_unmuted broadcast %d times, want 1", n)
	}
}
