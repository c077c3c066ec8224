package rbac

import (
	"testing"

	"github.com/mlaroche/chatnet/pkg/model"
)

func room() *model.Room {
	return &model.Room{
		ID:      "room-1",
		Owner:   "owner",
		Hosts:   []string{"owner", "host"},
		Members: []string{"owner", "host", "member", "adm"},
	}
}

func TestCanModerate(t *testing.T) {
	r := room()
	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"room owner", Actor{ID: "owner"}, true},
		{"room host", Actor{ID: "host"}, true},
		{"plain member", Actor{ID: "member", Roles: model.RoleSet{model.RoleUser}}, false},
		{"global admin outsider", Actor{ID: "adm", Roles: model.RoleSet{model.RoleAdmin}}, true},
		{"global owner outsider", Actor{ID: "adm", Roles: model.RoleSet{model.RoleOwner}}, true},
		{"global host role gives nothing", Actor{ID: "member", Roles: model.RoleSet{model.RoleHost}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanModerate(tt.actor, r); got != tt.want {
				t.Errorf("CanModerate(%s) = %v, want %v", tt.actor.ID, got, tt.want)
			}
		})
	}
}

func TestCanTarget(t *testing.T) {
	r := room()
	host := Actor{ID: "host", Roles: model.RoleSet{model.RoleUser}}
	admin := Actor{ID: "adm", Roles: model.RoleSet{model.RoleAdmin}}

	if err := CanTarget(host, r, Actor{ID: "owner"}); err != model.ErrPermissionDenied {
		t.Fatalf("targeting the room owner must be denied, got %v", err)
	}
	if err := CanTarget(admin, r, Actor{ID: "owner"}); err != model.ErrPermissionDenied {
		t.Fatalf("even an admin must not target the room owner, got %v", err)
	}
	if err := CanTarget(host, r, Actor{ID: "adm", Roles: model.RoleSet{model.RoleAdmin}}); err != model.ErrPermissionDenied {
		t.Fatalf("non-admin targeting an admin must be denied, got %v", err)
	}
	if err := CanTarget(admin, r, Actor{ID: "member"}); err != nil {
		t.Fatalf("admin targeting a member: %v", err)
	}
	if err := CanTarget(host, r, Actor{ID: "member"}); err != nil {
		t.Fatalf("host targeting a member: %v", err)
	}
}
