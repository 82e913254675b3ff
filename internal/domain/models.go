// Package domain defines the records the application persists in its durable
// key-value storage and exchanges with the remote recipe API. Favorites and
// reviews are stored as JSON lists under well-known keys (see package storage);
// KVEntry and Idempotency are mapped with GORM.
package domain

import (
	"encoding/json"
	"time"
)

// KVEntry is one row of the durable key-value storage. Values are opaque
// strings (JSON documents in practice), mirroring browser local storage.
type KVEntry struct {
	Key       string    `gorm:"type:varchar(255);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index"`
}

// TableName returns the database table name for KVEntry.
func (KVEntry) TableName() string { return "kv_entries" }

// RecipeSnapshot carries the denormalized recipe fields copied into a favorite
// so the profile view can render it without a network call.
type RecipeSnapshot struct {
	Name          string  `json:"name,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
	Category      string  `json:"category,omitempty"`
	Difficulty    string  `json:"difficulty,omitempty"`
	PrepTime      int     `json:"prep_time,omitempty"`
	CookTime      int     `json:"cook_time,omitempty"`
	AverageRating float64 `json:"average_rating,omitempty"`
	Description   string  `json:"description,omitempty"`
}

// Favorite is one recipe favorited by the current user.
//
// RecipeID is the single normalized identifier. Older records keyed the recipe
// by "id", "recipe_id" or both; UnmarshalJSON folds them into RecipeID and
// flags the record so the store can rewrite it once.
type Favorite struct {
	RecipeID FlexID `json:"recipe_id"`
	RecipeSnapshot
	CreatedAt time.Time `json:"created_at"`

	legacy bool
}

// NeedsMigration reports whether the record was decoded from a legacy shape.
func (f Favorite) NeedsMigration() bool { return f.legacy }

// UnmarshalJSON accepts both the current and the legacy favorite layouts.
func (f *Favorite) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID        FlexID   `json:"id"`
		RecipeID  FlexID   `json:"recipe_id"`
		CreatedAt FlexTime `json:"created_at"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var snap RecipeSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return err
	}
	*f = Favorite{RecipeSnapshot: snap, CreatedAt: raw.CreatedAt.Time}
	switch {
	case raw.RecipeID != "":
		f.RecipeID = raw.RecipeID
		f.legacy = raw.ID != ""
	default:
		f.RecipeID = raw.ID
		f.legacy = true
	}
	return nil
}

// Review is one rating + comment left by a user on a recipe.
type Review struct {
	ID             string    `json:"id"`
	RecipeID       FlexID    `json:"recipe_id"`
	UserIdentifier string    `json:"user_identifier"`
	RecipeName     string    `json:"recipe_name,omitempty"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
}

// UnmarshalJSON accepts the field spellings used by older clients
// (recipeId, recipeName, timestamp, date).
func (r *Review) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID             FlexID   `json:"id"`
		RecipeID       FlexID   `json:"recipe_id"`
		RecipeIDCamel  FlexID   `json:"recipeId"`
		UserIdentifier string   `json:"user_identifier"`
		RecipeName     string   `json:"recipe_name"`
		RecipeNameOld  string   `json:"recipeName"`
		Rating         FlexInt  `json:"rating"`
		Comment        string   `json:"comment"`
		CreatedAt      FlexTime `json:"created_at"`
		Timestamp      FlexTime `json:"timestamp"`
		Date           FlexTime `json:"date"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Review{
		ID:             string(raw.ID),
		RecipeID:       firstID(raw.RecipeID, raw.RecipeIDCamel),
		UserIdentifier: raw.UserIdentifier,
		RecipeName:     raw.RecipeName,
		Rating:         int(raw.Rating),
		Comment:        raw.Comment,
	}
	if r.RecipeName == "" {
		r.RecipeName = raw.RecipeNameOld
	}
	for _, t := range []FlexTime{raw.CreatedAt, raw.Timestamp, raw.Date} {
		if !t.IsZero() {
			r.CreatedAt = t.Time
			break
		}
	}
	return nil
}

// RecipeSummary is the locally cached view of a recipe's review aggregate,
// stored under recipe_<id>.
type RecipeSummary struct {
	ID            FlexID  `json:"id"`
	Name          string  `json:"name,omitempty"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// Recipe is a recipe as served by the remote API. Ingredients and steps are
// passed through untouched.
type Recipe struct {
	ID FlexID `json:"id"`
	RecipeSnapshot
	ReviewCount int             `json:"review_count"`
	Servings    int             `json:"servings,omitempty"`
	Ingredients json.RawMessage `json:"ingredients,omitempty"`
	Steps       json.RawMessage `json:"steps,omitempty"`
	CreatedAt   FlexTime        `json:"created_at,omitempty"`
}

// Snapshot returns the denormalized fields stored with a favorite.
func (r Recipe) Snapshot() RecipeSnapshot { return r.RecipeSnapshot }

// Category is a recipe category as served by the remote API.
type Category struct {
	ID   FlexID `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Profile is the locally edited user profile.
type Profile struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Avatar   string `json:"avatar,omitempty"`
	UserID   string `json:"userId"`
}

func firstID(ids ...FlexID) FlexID {
	for _, id := range ids {
		if id != "" {
			return id
		}
	}
	return ""
}
