package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipe-backend/internal/config"
	"github.com/tbourn/go-recipe-backend/internal/identity"
	"github.com/tbourn/go-recipe-backend/internal/querycache"
	"github.com/tbourn/go-recipe-backend/internal/remote"
	"github.com/tbourn/go-recipe-backend/internal/repo"
	"github.com/tbourn/go-recipe-backend/internal/services"
	"github.com/tbourn/go-recipe-backend/internal/storage"
	"github.com/tbourn/go-recipe-backend/internal/sysutil"
)

// CommandContext holds the opened database and the services built on it.
type CommandContext struct {
	DB        *gorm.DB
	Store     storage.Store
	Identity  *identity.Provider
	Favorites *services.FavoriteService
	Reviews   *services.ReviewService
	Profiles  *services.ProfileService
	JSONMode  bool
	Sync      bool
}

// Close releases the database handle.
func (c *CommandContext) Close() {
	if sqlDB, err := c.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// GetContext opens the database named by --db (or $DB_PATH) and wires the
// services. Remote sync is off unless --sync is given, in which case the
// remote API settings come from the environment.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	dbFlag, _ := cmd.Flags().GetString("db")
	jsonMode, _ := cmd.Flags().GetBool("json")
	sync, _ := cmd.Flags().GetBool("sync")

	path := sysutil.FirstNonEmpty(dbFlag, os.Getenv("DB_PATH"), "recipes.db")
	db, err := repo.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	st := storage.NewSQL(db)
	ids := identity.New(st)
	ctx := &CommandContext{
		DB:       db,
		Store:    st,
		Identity: ids,
		Profiles: services.NewProfileService(st, ids),
		JSONMode: jsonMode,
		Sync:     sync,
	}

	if !sync {
		ctx.Favorites = services.NewFavoriteService(st, ids, nil)
		ctx.Reviews = services.NewReviewService(st, ids, nil)
		return ctx, nil
	}

	cfg, err := config.Load()
	if err != nil {
		ctx.Close()
		return nil, err
	}
	rc := remote.New(cfg.Remote.BaseURL, cfg.Remote.Prefix,
		&http.Client{Timeout: cfg.Remote.Timeout},
		querycache.New(),
		remote.TTLs{Default: cfg.Cache.DefaultTTL},
	)
	ctx.Favorites = services.NewFavoriteService(st, ids, rc)
	ctx.Favorites.SyncTimeout = cfg.Remote.SyncTimeout
	ctx.Reviews = services.NewReviewService(st, ids, rc)
	ctx.Reviews.SyncTimeout = cfg.Remote.SyncTimeout
	return ctx, nil
}
