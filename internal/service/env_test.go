package service

import (
	"atrium/internal/authz"
	"atrium/internal/domain/models"
	"atrium/internal/domain/services"
)

// env wires every service against one shared fake state.
type env struct {
	st *fakeState
	bc *fakeBroadcaster

	users      *fakeUserRepo
	workspaces *fakeWorkspaceRepo
	spaces     *fakeSpaceRepo
	folders    *fakeFolderRepo
	members    *fakeMemberRepo
	invites    *fakeInviteRepo

	engine *authz.Engine

	workspaceSvc    services.WorkspaceService
	spaceSvc        services.SpaceService
	folderSvc       services.FolderService
	invitationSvc   services.InvitationService
	provisioningSvc *ProvisioningService
}

func newEnv() *env {
	st := newFakeState()
	e := &env{
		st:         st,
		bc:         &fakeBroadcaster{},
		users:      &fakeUserRepo{st: st},
		workspaces: &fakeWorkspaceRepo{st: st},
		spaces:     &fakeSpaceRepo{st: st},
		folders:    &fakeFolderRepo{st: st},
		members:    &fakeMemberRepo{st: st},
		invites:    &fakeInviteRepo{st: st},
	}

	logger := testLogger()
	tx := &fakeTxManager{state: st}
	guard := authz.NewGuard(authz.NewResolver(e.members, e.spaces))
	e.engine = authz.NewEngine(guard, e.folders, e.spaces, logger)

	e.workspaceSvc = NewWorkspaceService(e.workspaces, e.members, e.users, tx, e.engine, e.bc, logger)
	e.spaceSvc = NewSpaceService(e.spaces, e.members, e.workspaces, tx, e.engine, e.bc, logger)
	e.folderSvc = NewFolderService(e.folders, tx, e.engine, e.bc, logger)
	e.invitationSvc = NewInvitationService(e.invites, e.members, e.workspaces, e.users, tx, e.engine, e.bc, nil, logger)
	e.provisioningSvc = NewProvisioningService(e.users, e.workspaces, e.spaces, e.members, e.invites, tx, e.bc, logger)

	return e
}

func (e *env) addUser(id, name, email string) *models.User {
	u := &models.User{ID: id, Name: name, Email: email, MaxWorkspaces: 5, MaxMembers: 10}
	e.st.users[id] = u
	return u
}

func (e *env) addWorkspace(id, ownerID string) *models.Workspace {
	w := &models.Workspace{ID: id, Name: id, OwnerID: ownerID, Type: models.WorkspacePublic}
	e.st.workspaces[id] = w
	return w
}

func (e *env) addSpace(id, workspaceID string) *models.Space {
	s := &models.Space{ID: id, WorkspaceID: workspaceID, Name: id, Type: models.SpaceCustom}
	e.st.spaces[id] = s
	return s
}

func (e *env) addMember(id, userID, workspaceID string, role models.Role, spaceIDs ...string) *models.Member {
	m := &models.Member{ID: id, UserID: userID, WorkspaceID: workspaceID, Role: role, SpaceIDs: spaceIDs}
	e.st.members[id] = m
	return m
}

func (e *env) addFolder(id, workspaceID string, spaceID, parentID *string) *models.Folder {
	f := &models.Folder{ID: id, WorkspaceID: workspaceID, SpaceID: spaceID, ParentFolderID: parentID, Name: id}
	e.st.folders[id] = f
	return f
}

func strptr(s string) *string { return &s }
