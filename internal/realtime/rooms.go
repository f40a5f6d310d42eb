package realtime

import "fmt"

// Room is a broadcast target. Rooms are named after the most specific
// resource a client is viewing: a folder beats its space, a space beats its
// workspace. Clients in different rooms never see each other's events even
// when the rooms belong to the same workspace.
type Room string

// FolderRoom returns the room for clients viewing a specific folder.
func FolderRoom(folderID string) Room {
	return Room(fmt.Sprintf("folder-%s", folderID))
}

// SpaceRoom returns the room for clients viewing a space's root listing.
func SpaceRoom(spaceID string) Room {
	return Room(fmt.Sprintf("space-%s", spaceID))
}

// WorkspaceRoom returns the room for clients viewing a workspace's root
// listing (library folders, workspace-level changes).
func WorkspaceRoom(workspaceID string) Room {
	return Room(fmt.Sprintf("workspace-%s", workspaceID))
}

// UserRoom returns the per-user room used for direct notifications
// (invitations, provisioning results). Every connection a user holds joins
// it automatically.
func UserRoom(userID string) Room {
	return Room(fmt.Sprintf("user-%s", userID))
}

// ViewRoom picks the room for a client's current view: folder if one is
// open, otherwise the space root, otherwise the workspace root.
func ViewRoom(workspaceID string, spaceID, folderID *string) Room {
	switch {
	case folderID != nil && *folderID != "":
		return FolderRoom(*folderID)
	case spaceID != nil && *spaceID != "":
		return SpaceRoom(*spaceID)
	default:
		return WorkspaceRoom(workspaceID)
	}
}
