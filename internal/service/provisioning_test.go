package service

import (
	"context"
	"errors"
	"testing"

	"atrium/internal/bus"
	"atrium/internal/domain/models"
)

func verifiedEvent() bus.UserVerifiedEvent {
	return bus.UserVerifiedEvent{
		UserID:        "alice",
		Name:          "Alice",
		Email:         "alice@example.com",
		MaxWorkspaces: 3,
		MaxMembers:    10,
	}
}

func TestHandleUserVerifiedProvisions(t *testing.T) {
	e := newEnv()

	if err := e.provisioningSvc.HandleUserVerified(context.Background(), verifiedEvent()); err != nil {
		t.Fatalf("HandleUserVerified: %v", err)
	}

	user, ok := e.st.users["alice"]
	if !ok {
		t.Fatal("user not created")
	}
	if user.MaxWorkspaces != 3 {
		t.Errorf("max workspaces = %d", user.MaxWorkspaces)
	}

	var workspace *models.Workspace
	for _, w := range e.st.workspaces {
		if w.OwnerID == "alice" {
			workspace = w
		}
	}
	if workspace == nil {
		t.Fatal("personal workspace not created")
	}
	if workspace.Type != models.WorkspacePersonal {
		t.Errorf("type = %s, want PERSONAL", workspace.Type)
	}

	var space *models.Space
	for _, s := range e.st.spaces {
		if s.WorkspaceID == workspace.ID {
			space = s
		}
	}
	if space == nil {
		t.Fatal("default space not created")
	}
	if space.Type != models.SpaceDefault {
		t.Errorf("space type = %s, want DEFAULT", space.Type)
	}

	var member *models.Member
	for _, m := range e.st.members {
		if m.WorkspaceID == workspace.ID && m.UserID == "alice" {
			member = m
		}
	}
	if member == nil {
		t.Fatal("owner member not created")
	}
	if member.Role != models.RoleAdmin {
		t.Errorf("role = %s, want ADMIN", member.Role)
	}
	if !member.HasSpaceAccess(space.ID) {
		t.Error("owner not granted the default space")
	}

	if user.SelectedWorkspaceID == nil || *user.SelectedWorkspaceID != workspace.ID {
		t.Error("selected workspace not set")
	}

	names := e.bc.names()
	if len(names) != 1 || names[0] != models.EventWorkspaceCreated {
		t.Errorf("events = %v", names)
	}
}

func TestHandleUserVerifiedRedelivery(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	if err := e.provisioningSvc.HandleUserVerified(ctx, verifiedEvent()); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := e.provisioningSvc.HandleUserVerified(ctx, verifiedEvent()); err != nil {
		t.Fatalf("second delivery: %v", err)
	}

	if len(e.st.workspaces) != 1 {
		t.Errorf("workspaces = %d, want 1 after redelivery", len(e.st.workspaces))
	}
	if len(e.st.members) != 1 {
		t.Errorf("members = %d, want 1 after redelivery", len(e.st.members))
	}
}

func TestHandleUserVerifiedClaimsInvites(t *testing.T) {
	e := newEnv()
	e.addUser("admin", "Admin", "admin@example.com")
	e.addWorkspace("w1", "admin")
	e.addMember("m-admin", "admin", "w1", models.RoleAdmin)
	e.st.invites["i1"] = &models.Invite{
		ID:            "i1",
		WorkspaceID:   "w1",
		SenderID:      "admin",
		ReceiverEmail: "alice@example.com",
		Status:        models.InvitePending,
	}

	if err := e.provisioningSvc.HandleUserVerified(context.Background(), verifiedEvent()); err != nil {
		t.Fatalf("HandleUserVerified: %v", err)
	}

	invite := e.st.invites["i1"]
	if invite.ReceiverID == nil || *invite.ReceiverID != "alice" {
		t.Error("pre-registration invite not claimed")
	}
}

func TestHandleUserVerifiedRollsBack(t *testing.T) {
	e := newEnv()
	e.st.failOn["member.create"] = errors.New("boom")

	if err := e.provisioningSvc.HandleUserVerified(context.Background(), verifiedEvent()); err == nil {
		t.Fatal("expected error")
	}

	if len(e.st.workspaces) != 0 {
		t.Error("workspace survived failed provisioning")
	}
	if len(e.st.spaces) != 0 {
		t.Error("space survived failed provisioning")
	}
}
