package config

const (
	// MaxWorkspaceNameLength is the maximum length for workspace names.
	// Limited to 100 to fit the display column in every client surface.
	MaxWorkspaceNameLength = 100

	// MaxSpaceNameLength is the maximum length for space names.
	MaxSpaceNameLength = 100

	// MaxFolderNameLength is the maximum length for folder names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxFolderNameLength = 255

	// DefaultMaxWorkspaces is how many workspaces a fresh account may own
	// before the identity provider raises the per-user limit.
	DefaultMaxWorkspaces = 5

	// DefaultMaxMembers is the member cap applied to workspaces owned by a
	// fresh account.
	DefaultMaxMembers = 25

	// DefaultSearchLimit caps member search results when the client does not
	// pass an explicit limit.
	DefaultSearchLimit = 20
)
