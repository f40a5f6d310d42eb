package service

import (
	"context"
	"errors"
	"testing"

	"atrium/internal/domain"
	"atrium/internal/domain/models"
	"atrium/internal/domain/services"
	"atrium/internal/realtime"
)

// folderEnv: workspace w1 owned by admin, spaces s1/s2; admin has s1 only,
// editor has s1.
func folderEnv() *env {
	e := newEnv()
	e.addUser("admin", "Admin", "admin@example.com")
	e.addUser("editor", "Editor", "editor@example.com")
	e.addUser("viewer", "Viewer", "viewer@example.com")
	e.addWorkspace("w1", "admin")
	e.addSpace("s1", "w1")
	e.addSpace("s2", "w1")
	e.addMember("m-admin", "admin", "w1", models.RoleAdmin, "s1")
	e.addMember("m-editor", "editor", "w1", models.RoleEditor, "s1")
	e.addMember("m-viewer", "viewer", "w1", models.RoleViewer, "s1")
	return e
}

func TestCreateFolderDefaultsName(t *testing.T) {
	e := folderEnv()

	folder, err := e.folderSvc.CreateFolder(context.Background(), "editor", &services.CreateFolderRequest{
		WorkspaceID: "w1",
		SpaceID:     strptr("s1"),
	})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if folder.Name != "Untitled Folder" {
		t.Errorf("name = %q", folder.Name)
	}
	if folder.SpaceID == nil || *folder.SpaceID != "s1" {
		t.Errorf("space = %v, want s1", folder.SpaceID)
	}
}

func TestCreateFolderSpaceAccessRequired(t *testing.T) {
	e := folderEnv()

	// admin of the workspace, but never granted s2
	_, err := e.folderSvc.CreateFolder(context.Background(), "admin", &services.CreateFolderRequest{
		WorkspaceID: "w1",
		SpaceID:     strptr("s2"),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestCreateFolderViewerForbidden(t *testing.T) {
	e := folderEnv()

	_, err := e.folderSvc.CreateFolder(context.Background(), "viewer", &services.CreateFolderRequest{
		WorkspaceID: "w1",
		SpaceID:     strptr("s1"),
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestCreateFolderInheritsParentSpace(t *testing.T) {
	e := folderEnv()
	e.addFolder("root", "w1", strptr("s1"), nil)

	folder, err := e.folderSvc.CreateFolder(context.Background(), "editor", &services.CreateFolderRequest{
		WorkspaceID:    "w1",
		ParentFolderID: strptr("root"),
		Name:           "Child",
	})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if folder.ParentFolderID == nil || *folder.ParentFolderID != "root" {
		t.Errorf("parent = %v", folder.ParentFolderID)
	}
	if folder.SpaceID == nil || *folder.SpaceID != "s1" {
		t.Errorf("space = %v, want inherited s1", folder.SpaceID)
	}
}

func TestMoveFolderRollsBackOnFailure(t *testing.T) {
	e := folderEnv()
	e.addFolder("f1", "w1", strptr("s1"), nil)
	e.st.failOn["folder.move"] = errors.New("boom")

	_, err := e.folderSvc.MoveFolder(context.Background(), "admin", "f1", models.MoveDestination{
		Type: models.MoveToWorkspace, ID: "w1",
	})
	if err == nil {
		t.Fatal("expected error")
	}

	f := e.st.folders["f1"]
	if f.SpaceID == nil || *f.SpaceID != "s1" {
		t.Error("folder mutated despite failed move")
	}
	for _, name := range e.bc.names() {
		if name == models.EventFolderMoved {
			t.Error("move event broadcast for a rolled-back write")
		}
	}
}

func TestMoveFolderBroadcastsBothRooms(t *testing.T) {
	e := folderEnv()
	e.addFolder("f1", "w1", strptr("s1"), nil)

	after, err := e.folderSvc.MoveFolder(context.Background(), "admin", "f1", models.MoveDestination{
		Type: models.MoveToWorkspace, ID: "w1",
	})
	if err != nil {
		t.Fatalf("MoveFolder: %v", err)
	}
	if after.SpaceID != nil || after.ParentFolderID != nil {
		t.Errorf("pointers not cleared: %+v", after)
	}

	rooms := make(map[realtime.Room]bool)
	for _, ev := range e.bc.events {
		if ev.event.Name == models.EventFolderMoved {
			rooms[ev.room] = true
		}
	}
	if !rooms[realtime.SpaceRoom("s1")] {
		t.Error("old room missed the move event")
	}
	if !rooms[realtime.WorkspaceRoom("w1")] {
		t.Error("new room missed the move event")
	}
}

func TestMoveFolderDeniedDestination(t *testing.T) {
	e := folderEnv()
	e.addFolder("f1", "w1", strptr("s1"), nil)

	// admin has no grant on s2
	_, err := e.folderSvc.MoveFolder(context.Background(), "admin", "f1", models.MoveDestination{
		Type: models.MoveToSpace, ID: "s2",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
	if f := e.st.folders["f1"]; f.SpaceID == nil || *f.SpaceID != "s1" {
		t.Error("folder mutated despite denied move")
	}
}

func TestDeleteFolderRemovesSubtree(t *testing.T) {
	e := folderEnv()
	e.addFolder("root", "w1", strptr("s1"), nil)
	e.addFolder("child", "w1", nil, strptr("root"))
	e.addFolder("grandchild", "w1", nil, strptr("child"))

	if err := e.folderSvc.DeleteFolder(context.Background(), "admin", "root"); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}

	for _, id := range []string{"root", "child", "grandchild"} {
		if _, ok := e.st.folders[id]; ok {
			t.Errorf("folder %s survived subtree delete", id)
		}
	}
}

func TestDeleteFolderAdminOnly(t *testing.T) {
	e := folderEnv()
	e.addFolder("f1", "w1", strptr("s1"), nil)

	for _, caller := range []string{"editor", "viewer"} {
		if err := e.folderSvc.DeleteFolder(context.Background(), caller, "f1"); !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("%s delete err = %v, want forbidden", caller, err)
		}
	}
	if _, ok := e.st.folders["f1"]; !ok {
		t.Error("folder removed by non-admin")
	}
}

func TestRenameFolder(t *testing.T) {
	e := folderEnv()
	e.addFolder("f1", "w1", strptr("s1"), nil)

	folder, err := e.folderSvc.RenameFolder(context.Background(), "editor", "f1", "Docs")
	if err != nil {
		t.Fatalf("RenameFolder: %v", err)
	}
	if folder.Name != "Docs" {
		t.Errorf("name = %s", folder.Name)
	}

	if _, err := e.folderSvc.RenameFolder(context.Background(), "viewer", "f1", "Nope"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("viewer rename err = %v, want forbidden", err)
	}
	if _, err := e.folderSvc.RenameFolder(context.Background(), "editor", "f1", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty name err = %v, want validation", err)
	}
}

func TestGetAncestors(t *testing.T) {
	e := folderEnv()
	e.addFolder("root", "w1", strptr("s1"), nil)
	e.addFolder("child", "w1", nil, strptr("root"))

	chain, err := e.folderSvc.GetAncestors(context.Background(), "editor", "w1", "child")
	if err != nil {
		t.Fatalf("GetAncestors: %v", err)
	}
	if len(chain) != 2 || chain[0].ID != "root" || chain[1].ID != "child" {
		t.Errorf("chain = %v", chain)
	}
}
