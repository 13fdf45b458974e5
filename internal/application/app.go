// Package application wires configuration, storage and services into the
// components shared by the server and the command-line tool.
package application

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/userimport/internal/avatar"
	"github.com/JonMunkholm/userimport/internal/config"
	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/database"
	"github.com/JonMunkholm/userimport/internal/media"
	"github.com/JonMunkholm/userimport/internal/store"
)

// App holds the wired services.
type App struct {
	Config   *config.Config
	DB       *database.DB
	Users    *store.Users
	Meta     *store.Meta
	Options  *store.Options
	Library  *media.Library
	Avatars  *avatar.Service
	Importer *core.Importer
	Limiter  *core.ImportLimiter
}

// Open connects to the database, applies migrations and wires the services.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	app, err := New(db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

// New wires the services over an open database.
func New(db *database.DB, cfg *config.Config) (*App, error) {
	users := store.NewUsers(db)
	meta := store.NewMeta(db)
	options := store.NewOptions(db)

	library, err := media.NewLibrary(store.NewAttachments(db), cfg.Media.UploadsDir, cfg.Media.UploadsURL)
	if err != nil {
		return nil, fmt.Errorf("open media library: %w", err)
	}

	opts := []core.ImporterOption{
		core.WithPasswordHasher(core.PasswordHasher{Cost: cfg.Import.PasswordCost}),
	}
	if cfg.Import.SideloadAvatars {
		fetcher := media.NewHTTPFetcher(cfg.Media.FetchTimeout, cfg.Media.MaxDownloadSize)
		opts = append(opts, core.WithSideloader(core.NewSideloader(fetcher, library, meta)))
	}

	return &App{
		Config:  cfg,
		DB:      db,
		Users:   users,
		Meta:    meta,
		Options: options,
		Library: library,
		Avatars: avatar.NewService(users, meta, library, options, avatar.Config{
			BaseURL:       cfg.Server.BaseURL,
			ForceHTTPS:    cfg.Media.ForceHTTPS,
			DefaultSize:   cfg.Avatar.DefaultSize,
			MaxSize:       cfg.Avatar.MaxSize,
			MaxUploadSize: cfg.Avatar.MaxUploadSize,
		}),
		Importer: core.NewImporter(users, meta, opts...),
		Limiter:  core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
	}, nil
}

// Close releases the database pool.
func (a *App) Close() {
	a.DB.Close()
}
