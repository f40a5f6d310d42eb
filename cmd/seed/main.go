package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"atrium/internal/config"
	"atrium/internal/domain/models"
	"atrium/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed fixtures")
	fixtures := flag.String("fixtures", "fixtures.yaml", "Path to the YAML fixture file")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("🌱 Seeding database (environment: %s)", cfg.Environment)

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Drop tables if requested
	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := dropAllTables(ctx, pool); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	// Run schema to ensure tables exist
	log.Println("📋 Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	fixtureSet, err := loadFixtures(*fixtures)
	if err != nil {
		log.Fatalf("Failed to load fixtures: %v", err)
	}

	if err := seedFixtures(ctx, pool, logger, fixtureSet); err != nil {
		log.Fatalf("Failed to seed fixtures: %v", err)
	}

	log.Println("🎉 Seeding complete!")
}

// fixtureSet mirrors the YAML fixture file layout.
type fixtureSet struct {
	Users []struct {
		ID            string `yaml:"id"`
		Name          string `yaml:"name"`
		Email         string `yaml:"email"`
		MaxWorkspaces int    `yaml:"max_workspaces"`
		MaxMembers    int    `yaml:"max_members"`
	} `yaml:"users"`
	Workspaces []struct {
		ID      string `yaml:"id"`
		Name    string `yaml:"name"`
		OwnerID string `yaml:"owner_id"`
		Type    string `yaml:"type"`
	} `yaml:"workspaces"`
	Spaces []struct {
		ID          string `yaml:"id"`
		WorkspaceID string `yaml:"workspace_id"`
		Name        string `yaml:"name"`
		Type        string `yaml:"type"`
	} `yaml:"spaces"`
	Members []struct {
		ID          string   `yaml:"id"`
		UserID      string   `yaml:"user_id"`
		WorkspaceID string   `yaml:"workspace_id"`
		Role        string   `yaml:"role"`
		SpaceIDs    []string `yaml:"space_ids"`
	} `yaml:"members"`
	Folders []struct {
		ID             string  `yaml:"id"`
		WorkspaceID    string  `yaml:"workspace_id"`
		SpaceID        *string `yaml:"space_id"`
		ParentFolderID *string `yaml:"parent_folder_id"`
		Name           string  `yaml:"name"`
	} `yaml:"folders"`
}

func loadFixtures(path string) (*fixtureSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var set fixtureSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func seedFixtures(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger, set *fixtureSet) error {
	for _, u := range set.Users {
		maxWorkspaces := u.MaxWorkspaces
		if maxWorkspaces <= 0 {
			maxWorkspaces = config.DefaultMaxWorkspaces
		}
		maxMembers := u.MaxMembers
		if maxMembers <= 0 {
			maxMembers = config.DefaultMaxMembers
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO users (id, name, email, max_workspaces, max_members)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, u.ID, u.Name, u.Email, maxWorkspaces, maxMembers)
		if err != nil {
			return err
		}
		log.Printf("✅ Seeded user %s <%s>", u.Name, u.Email)
	}

	for _, w := range set.Workspaces {
		_, err := pool.Exec(ctx, `
			INSERT INTO workspaces (id, name, owner_id, type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, w.ID, w.Name, w.OwnerID, w.Type)
		if err != nil {
			return err
		}
		log.Printf("✅ Seeded workspace %s", w.Name)
	}

	for _, s := range set.Spaces {
		_, err := pool.Exec(ctx, `
			INSERT INTO spaces (id, workspace_id, name, type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO NOTHING
		`, s.ID, s.WorkspaceID, s.Name, s.Type)
		if err != nil {
			return err
		}
	}

	for _, m := range set.Members {
		if _, err := models.ParseRole(m.Role); err != nil {
			return err
		}
		spaceIDs := m.SpaceIDs
		if spaceIDs == nil {
			spaceIDs = []string{}
		}
		_, err := pool.Exec(ctx, `
			INSERT INTO members (id, user_id, workspace_id, role, space_ids)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, m.ID, m.UserID, m.WorkspaceID, m.Role, spaceIDs)
		if err != nil {
			return err
		}
	}

	for _, f := range set.Folders {
		_, err := pool.Exec(ctx, `
			INSERT INTO folders (id, workspace_id, space_id, parent_folder_id, name)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
		`, f.ID, f.WorkspaceID, f.SpaceID, f.ParentFolderID, f.Name)
		if err != nil {
			return err
		}
	}

	logger.Info("fixtures seeded",
		"users", len(set.Users),
		"workspaces", len(set.Workspaces),
		"spaces", len(set.Spaces),
		"members", len(set.Members),
		"folders", len(set.Folders),
	)
	return nil
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			max_workspaces INTEGER NOT NULL DEFAULT 5,
			max_members INTEGER NOT NULL DEFAULT 25,
			selected_workspace_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS workspaces (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			owner_id TEXT NOT NULL REFERENCES users(id),
			type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS spaces (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS members (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			space_ids TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, workspace_id)
		)`,
		`CREATE TABLE IF NOT EXISTS folders (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
			space_id TEXT REFERENCES spaces(id) ON DELETE CASCADE,
			parent_folder_id TEXT REFERENCES folders(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS invites (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
			sender_id TEXT NOT NULL REFERENCES users(id),
			receiver_id TEXT REFERENCES users(id),
			receiver_email TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_members_workspace ON members(workspace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_members_user ON members(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_folders_workspace_parent ON folders(workspace_id, parent_folder_id)`,
		`CREATE INDEX IF NOT EXISTS idx_folders_space ON folders(space_id)`,
		`CREATE INDEX IF NOT EXISTS idx_invites_receiver_email ON invites(receiver_email)`,
		`CREATE INDEX IF NOT EXISTS idx_invites_workspace_status ON invites(workspace_id, status)`,
		// At most one live invite per (workspace, email); concurrent sends
		// hit this instead of both committing.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_invites_pending
			ON invites(workspace_id, receiver_email) WHERE status = 'PENDING'`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool) error {
	tableNames := []string{
		"invites",
		"folders",
		"members",
		"spaces",
		"workspaces",
		"users",
	}

	for _, table := range tableNames {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
		log.Printf("  ✓ Dropped %s", table)
	}

	return nil
}
