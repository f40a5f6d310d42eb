package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"atrium/internal/domain"
	"atrium/internal/domain/models"
	"atrium/internal/domain/repositories"
	"atrium/internal/realtime"
)

// fakeState is the shared in-memory backing store for the fake repositories.
type fakeState struct {
	mu         sync.Mutex
	users      map[string]*models.User
	workspaces map[string]*models.Workspace
	spaces     map[string]*models.Space
	folders    map[string]*models.Folder
	members    map[string]*models.Member
	invites    map[string]*models.Invite

	// failOn makes the named operation fail once, for rollback tests.
	failOn map[string]error
}

func newFakeState() *fakeState {
	return &fakeState{
		users:      make(map[string]*models.User),
		workspaces: make(map[string]*models.Workspace),
		spaces:     make(map[string]*models.Space),
		folders:    make(map[string]*models.Folder),
		members:    make(map[string]*models.Member),
		invites:    make(map[string]*models.Invite),
		failOn:     make(map[string]error),
	}
}

func (st *fakeState) fail(op string) error {
	if err, ok := st.failOn[op]; ok {
		delete(st.failOn, op)
		return err
	}
	return nil
}

func (st *fakeState) snapshot() *fakeState {
	st.mu.Lock()
	defer st.mu.Unlock()
	cp := newFakeState()
	for k, v := range st.users {
		u := *v
		cp.users[k] = &u
	}
	for k, v := range st.workspaces {
		w := *v
		cp.workspaces[k] = &w
	}
	for k, v := range st.spaces {
		s := *v
		cp.spaces[k] = &s
	}
	for k, v := range st.folders {
		f := *v
		cp.folders[k] = &f
	}
	for k, v := range st.members {
		m := *v
		m.SpaceIDs = append([]string(nil), v.SpaceIDs...)
		cp.members[k] = &m
	}
	for k, v := range st.invites {
		i := *v
		cp.invites[k] = &i
	}
	return cp
}

func (st *fakeState) restore(from *fakeState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.users = from.users
	st.workspaces = from.workspaces
	st.spaces = from.spaces
	st.folders = from.folders
	st.members = from.members
	st.invites = from.invites
}

// fakeTxManager snapshots the state before fn and restores it when fn
// fails, mirroring a rolled-back transaction.
type fakeTxManager struct {
	state *fakeState
}

func (tm *fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	before := tm.state.snapshot()
	if err := fn(ctx); err != nil {
		tm.state.restore(before)
		return err
	}
	return nil
}

// --- repositories ---

type fakeUserRepo struct{ st *fakeState }

func (r *fakeUserRepo) Upsert(_ context.Context, user *models.User) error {
	if err := r.st.fail("user.upsert"); err != nil {
		return err
	}
	if existing, ok := r.st.users[user.ID]; ok {
		existing.Name = user.Name
		*user = *existing
		return nil
	}
	u := *user
	r.st.users[user.ID] = &u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := r.st.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range r.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
}

func (r *fakeUserRepo) SetSelectedWorkspace(_ context.Context, userID, workspaceID string) error {
	u, ok := r.st.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	u.SelectedWorkspaceID = &workspaceID
	return nil
}

func (r *fakeUserRepo) UpdateLimits(_ context.Context, userID string, maxWorkspaces, maxMembers int) error {
	u, ok := r.st.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}
	u.MaxWorkspaces = maxWorkspaces
	u.MaxMembers = maxMembers
	return nil
}

type fakeWorkspaceRepo struct{ st *fakeState }

func (r *fakeWorkspaceRepo) Create(_ context.Context, workspace *models.Workspace) error {
	if err := r.st.fail("workspace.create"); err != nil {
		return err
	}
	w := *workspace
	r.st.workspaces[workspace.ID] = &w
	return nil
}

func (r *fakeWorkspaceRepo) GetByID(_ context.Context, id string) (*models.Workspace, error) {
	if w, ok := r.st.workspaces[id]; ok {
		return w, nil
	}
	return nil, fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
}

func (r *fakeWorkspaceRepo) ListByUser(_ context.Context, userID string) ([]models.Workspace, error) {
	var out []models.Workspace
	for _, m := range r.st.members {
		if m.UserID == userID {
			if w, ok := r.st.workspaces[m.WorkspaceID]; ok {
				out = append(out, *w)
			}
		}
	}
	return out, nil
}

func (r *fakeWorkspaceRepo) CountByOwner(_ context.Context, ownerID string) (int, error) {
	count := 0
	for _, w := range r.st.workspaces {
		if w.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (r *fakeWorkspaceRepo) IsOwner(_ context.Context, workspaceID, userID string) (bool, error) {
	w, ok := r.st.workspaces[workspaceID]
	return ok && w.OwnerID == userID, nil
}

func (r *fakeWorkspaceRepo) Update(_ context.Context, workspace *models.Workspace) error {
	if _, ok := r.st.workspaces[workspace.ID]; !ok {
		return fmt.Errorf("workspace %s: %w", workspace.ID, domain.ErrNotFound)
	}
	w := *workspace
	r.st.workspaces[workspace.ID] = &w
	return nil
}

func (r *fakeWorkspaceRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.st.workspaces[id]; !ok {
		return fmt.Errorf("workspace %s: %w", id, domain.ErrNotFound)
	}
	delete(r.st.workspaces, id)
	return nil
}

type fakeSpaceRepo struct{ st *fakeState }

func (r *fakeSpaceRepo) Create(_ context.Context, space *models.Space) error {
	if err := r.st.fail("space.create"); err != nil {
		return err
	}
	s := *space
	r.st.spaces[space.ID] = &s
	return nil
}

func (r *fakeSpaceRepo) GetByID(_ context.Context, id string) (*models.Space, error) {
	if s, ok := r.st.spaces[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("space %s: %w", id, domain.ErrNotFound)
}

func (r *fakeSpaceRepo) ListByWorkspaceForUser(_ context.Context, workspaceID, userID string) ([]models.Space, error) {
	var member *models.Member
	for _, m := range r.st.members {
		if m.WorkspaceID == workspaceID && m.UserID == userID {
			member = m
			break
		}
	}
	var out []models.Space
	if member == nil {
		return out, nil
	}
	for _, s := range r.st.spaces {
		if s.WorkspaceID == workspaceID && member.HasSpaceAccess(s.ID) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSpaceRepo) Update(_ context.Context, space *models.Space) error {
	if _, ok := r.st.spaces[space.ID]; !ok {
		return fmt.Errorf("space %s: %w", space.ID, domain.ErrNotFound)
	}
	s := *space
	r.st.spaces[space.ID] = &s
	return nil
}

func (r *fakeSpaceRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.st.spaces[id]; !ok {
		return fmt.Errorf("space %s: %w", id, domain.ErrNotFound)
	}
	delete(r.st.spaces, id)
	return nil
}

type fakeMemberRepo struct{ st *fakeState }

func (r *fakeMemberRepo) Create(_ context.Context, member *models.Member) error {
	if err := r.st.fail("member.create"); err != nil {
		return err
	}
	for _, m := range r.st.members {
		if m.UserID == member.UserID && m.WorkspaceID == member.WorkspaceID {
			return &domain.ConflictError{
				Message:      "user is already a member of this workspace",
				ResourceType: "member",
				ResourceID:   member.UserID,
			}
		}
	}
	m := *member
	m.SpaceIDs = append([]string(nil), member.SpaceIDs...)
	r.st.members[member.ID] = &m
	return nil
}

func (r *fakeMemberRepo) FindByWorkspaceAndUser(_ context.Context, workspaceID, userID string) (*models.Member, error) {
	for _, m := range r.st.members {
		if m.WorkspaceID == workspaceID && m.UserID == userID {
			return m, nil
		}
	}
	return nil, fmt.Errorf("member: %w", domain.ErrNotFound)
}

func (r *fakeMemberRepo) FindWithSpaceAccess(ctx context.Context, workspaceID, userID, spaceID string) (*models.Member, error) {
	m, err := r.FindByWorkspaceAndUser(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if !m.HasSpaceAccess(spaceID) {
		return nil, fmt.Errorf("member space access: %w", domain.ErrNotFound)
	}
	return m, nil
}

func (r *fakeMemberRepo) GetByID(_ context.Context, memberID, workspaceID string) (*models.Member, error) {
	if m, ok := r.st.members[memberID]; ok && m.WorkspaceID == workspaceID {
		return m, nil
	}
	return nil, fmt.Errorf("member %s: %w", memberID, domain.ErrNotFound)
}

func (r *fakeMemberRepo) ListByWorkspace(_ context.Context, workspaceID string) ([]models.MemberInfo, error) {
	var out []models.MemberInfo
	for _, m := range r.st.members {
		if m.WorkspaceID != workspaceID {
			continue
		}
		info := models.MemberInfo{ID: m.ID, UserID: m.UserID, Role: m.Role, CreatedAt: m.CreatedAt}
		if u, ok := r.st.users[m.UserID]; ok {
			info.Name = u.Name
			info.Email = u.Email
		}
		out = append(out, info)
	}
	return out, nil
}

func (r *fakeMemberRepo) ListBySpace(_ context.Context, spaceID string) ([]models.MemberInfo, error) {
	var out []models.MemberInfo
	for _, m := range r.st.members {
		if m.HasSpaceAccess(spaceID) {
			out = append(out, models.MemberInfo{ID: m.ID, UserID: m.UserID, Role: m.Role})
		}
	}
	return out, nil
}

func (r *fakeMemberRepo) CountByWorkspace(_ context.Context, workspaceID string) (int, error) {
	count := 0
	for _, m := range r.st.members {
		if m.WorkspaceID == workspaceID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMemberRepo) UpdateRole(_ context.Context, memberID string, expectedRole, newRole models.Role) error {
	m, ok := r.st.members[memberID]
	if !ok || m.Role != expectedRole {
		return fmt.Errorf("member %s with role %s: %w", memberID, expectedRole, domain.ErrNotFound)
	}
	m.Role = newRole
	return nil
}

func (r *fakeMemberRepo) GrantSpace(_ context.Context, workspaceID string, userIDs []string, spaceID string) error {
	if err := r.st.fail("member.grantSpace"); err != nil {
		return err
	}
	for _, m := range r.st.members {
		if m.WorkspaceID != workspaceID || m.HasSpaceAccess(spaceID) {
			continue
		}
		for _, uid := range userIDs {
			if m.UserID == uid {
				m.SpaceIDs = append(m.SpaceIDs, spaceID)
				break
			}
		}
	}
	return nil
}

func (r *fakeMemberRepo) RevokeSpace(_ context.Context, memberID, spaceID string) error {
	m, ok := r.st.members[memberID]
	if !ok {
		return fmt.Errorf("member %s: %w", memberID, domain.ErrNotFound)
	}
	kept := m.SpaceIDs[:0]
	for _, id := range m.SpaceIDs {
		if id != spaceID {
			kept = append(kept, id)
		}
	}
	m.SpaceIDs = kept
	return nil
}

func (r *fakeMemberRepo) Delete(_ context.Context, memberID string) error {
	if _, ok := r.st.members[memberID]; !ok {
		return fmt.Errorf("member %s: %w", memberID, domain.ErrNotFound)
	}
	delete(r.st.members, memberID)
	return nil
}

func (r *fakeMemberRepo) Search(_ context.Context, workspaceID, query, excludeUserID string, excludeSpaceID *string, limit int) ([]models.MemberInfo, error) {
	var out []models.MemberInfo
	for _, m := range r.st.members {
		if m.WorkspaceID != workspaceID || m.UserID == excludeUserID {
			continue
		}
		if excludeSpaceID != nil && m.HasSpaceAccess(*excludeSpaceID) {
			continue
		}
		u, ok := r.st.users[m.UserID]
		if !ok {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(query)) &&
			!strings.Contains(strings.ToLower(u.Email), strings.ToLower(query)) {
			continue
		}
		out = append(out, models.MemberInfo{ID: m.ID, UserID: m.UserID, Name: u.Name, Email: u.Email, Role: m.Role})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeFolderRepo struct{ st *fakeState }

func (r *fakeFolderRepo) Create(_ context.Context, folder *models.Folder) error {
	if err := r.st.fail("folder.create"); err != nil {
		return err
	}
	f := *folder
	r.st.folders[folder.ID] = &f
	return nil
}

func (r *fakeFolderRepo) GetByID(_ context.Context, id string) (*models.Folder, error) {
	if f, ok := r.st.folders[id]; ok {
		c := *f
		return &c, nil
	}
	return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
}

func (r *fakeFolderRepo) GetRef(ctx context.Context, id string) (*models.FolderRef, error) {
	f, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.FolderRef{ID: f.ID, WorkspaceID: f.WorkspaceID, SpaceID: f.SpaceID}, nil
}

func (r *fakeFolderRepo) ListChildren(_ context.Context, workspaceID string, parentFolderID, spaceID *string) ([]models.Folder, error) {
	var out []models.Folder
	for _, f := range r.st.folders {
		if f.WorkspaceID == workspaceID && ptrEq(f.ParentFolderID, parentFolderID) && ptrEq(f.SpaceID, spaceID) {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r *fakeFolderRepo) Rename(_ context.Context, id, name string) error {
	f, ok := r.st.folders[id]
	if !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	f.Name = name
	return nil
}

func (r *fakeFolderRepo) Move(_ context.Context, id string, parentFolderID, spaceID *string) error {
	if err := r.st.fail("folder.move"); err != nil {
		return err
	}
	f, ok := r.st.folders[id]
	if !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	f.ParentFolderID = parentFolderID
	f.SpaceID = spaceID
	return nil
}

func (r *fakeFolderRepo) DeleteTree(_ context.Context, id string) error {
	if err := r.st.fail("folder.deleteTree"); err != nil {
		return err
	}
	if _, ok := r.st.folders[id]; !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	doomed := map[string]bool{id: true}
	for changed := true; changed; {
		changed = false
		for _, f := range r.st.folders {
			if doomed[f.ID] {
				continue
			}
			if f.ParentFolderID != nil && doomed[*f.ParentFolderID] {
				doomed[f.ID] = true
				changed = true
			}
		}
	}
	for fid := range doomed {
		delete(r.st.folders, fid)
	}
	return nil
}

func (r *fakeFolderRepo) Search(_ context.Context, workspaceID, query string, limit int) ([]models.Folder, error) {
	var out []models.Folder
	for _, f := range r.st.folders {
		if f.WorkspaceID == workspaceID && strings.Contains(strings.ToLower(f.Name), strings.ToLower(query)) {
			out = append(out, *f)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeInviteRepo struct{ st *fakeState }

func (r *fakeInviteRepo) Create(_ context.Context, invite *models.Invite) error {
	if err := r.st.fail("invite.create"); err != nil {
		return err
	}
	// Mirrors the partial unique index on pending (workspace, email) rows.
	if invite.Status == models.InvitePending {
		for _, i := range r.st.invites {
			if i.WorkspaceID == invite.WorkspaceID && i.ReceiverEmail == invite.ReceiverEmail && i.Status == models.InvitePending {
				return &domain.ConflictError{
					Message:      "a pending invite already exists for this email",
					ResourceType: "invite",
					ResourceID:   invite.ID,
				}
			}
		}
	}
	i := *invite
	r.st.invites[invite.ID] = &i
	return nil
}

func (r *fakeInviteRepo) GetByID(_ context.Context, id string) (*models.Invite, error) {
	if i, ok := r.st.invites[id]; ok {
		return i, nil
	}
	return nil, fmt.Errorf("invite %s: %w", id, domain.ErrNotFound)
}

func (r *fakeInviteRepo) FindPending(_ context.Context, workspaceID, receiverEmail string) (*models.Invite, error) {
	if err := r.st.fail("invite.findPending"); err != nil {
		return nil, err
	}
	for _, i := range r.st.invites {
		if i.WorkspaceID == workspaceID && i.ReceiverEmail == receiverEmail && i.Status == models.InvitePending {
			return i, nil
		}
	}
	return nil, fmt.Errorf("pending invite: %w", domain.ErrNotFound)
}

func (r *fakeInviteRepo) ListByReceiver(_ context.Context, userID, email string) ([]models.Invite, error) {
	var out []models.Invite
	for _, i := range r.st.invites {
		if (i.ReceiverID != nil && *i.ReceiverID == userID) || i.ReceiverEmail == email {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *fakeInviteRepo) UpdateStatus(_ context.Context, id string, status models.InviteStatus) error {
	if err := r.st.fail("invite.updateStatus"); err != nil {
		return err
	}
	i, ok := r.st.invites[id]
	if !ok {
		return fmt.Errorf("invite %s: %w", id, domain.ErrNotFound)
	}
	i.Status = status
	return nil
}

func (r *fakeInviteRepo) ClaimByEmail(_ context.Context, email, receiverID string) error {
	for _, i := range r.st.invites {
		if i.ReceiverEmail == email && i.ReceiverID == nil {
			id := receiverID
			i.ReceiverID = &id
		}
	}
	return nil
}

func ptrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// fakeBroadcaster records emitted events.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	room  realtime.Room
	event realtime.Event
}

func (b *fakeBroadcaster) Broadcast(room realtime.Room, event realtime.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{room: room, event: event})
}

func (b *fakeBroadcaster) EmitToUser(userID string, event realtime.Event) {
	b.Broadcast(realtime.UserRoom(userID), event)
}

func (b *fakeBroadcaster) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		out = append(out, e.event.Name)
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
