// Package services – ProfileService
//
// This file implements the locally edited user profile stored under
// user_profile. Validation happens before any write.
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-recipe-backend/internal/domain"
	"github.com/tbourn/go-recipe-backend/internal/storage"
)

// Profile limits.
const (
	DefaultUsername = "Pengguna"
	MaxAvatarBytes  = 2 << 20
)

// profileInput carries the validation rules of a profile write.
type profileInput struct {
	Username string `validate:"required,max=50"`
	Bio      string `validate:"max=200"`
	Avatar   string `validate:"omitempty,datauri"`
}

// ProfileService reads and writes the local profile.
type ProfileService struct {
	Store    storage.Store
	Identity IdentitySource

	validate *validator.Validate
}

// NewProfileService constructs a ProfileService.
func NewProfileService(st storage.Store, id IdentitySource) *ProfileService {
	return &ProfileService{Store: st, Identity: id, validate: validator.New()}
}

// Get returns the stored profile, defaulting the username, with UserID set
// to the current identifier.
func (s *ProfileService) Get(ctx context.Context) (domain.Profile, error) {
	uid, err := s.Identity.Get(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	p, _ := storedProfile(ctx, s.Store)
	if strings.TrimSpace(p.Username) == "" {
		p.Username = DefaultUsername
	}
	p.UserID = uid
	return p, nil
}

// Save validates p and stores it. Username and bio are trimmed and NFC
// normalized; lengths are counted in characters.
func (s *ProfileService) Save(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	in := profileInput{
		Username: norm.NFC.String(strings.TrimSpace(p.Username)),
		Bio:      norm.NFC.String(strings.TrimSpace(p.Bio)),
		Avatar:   strings.TrimSpace(p.Avatar),
	}
	if err := s.validator().Struct(in); err != nil {
		return domain.Profile{}, profileValidationErr(err)
	}
	if in.Avatar != "" {
		if err := checkAvatar(in.Avatar); err != nil {
			return domain.Profile{}, err
		}
	}

	uid, err := s.Identity.Get(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	out := domain.Profile{Username: in.Username, Bio: in.Bio, Avatar: in.Avatar, UserID: uid}
	if err := storage.WriteJSON(ctx, s.Store, storage.ProfileKey, out); err != nil {
		return domain.Profile{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return out, nil
}

func (s *ProfileService) validator() *validator.Validate {
	if s.validate == nil {
		s.validate = validator.New()
	}
	return s.validate
}

func profileValidationErr(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Field() {
	case "Username":
		if fe.Tag() == "required" {
			return ErrEmptyUsername
		}
		return ErrUsernameTooLong
	case "Bio":
		return ErrBioTooLong
	default:
		return ErrInvalidAvatar
	}
}

// checkAvatar accepts a base64 data URL of an image type whose decoded size
// is at most MaxAvatarBytes.
func checkAvatar(uri string) error {
	meta, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasPrefix(meta, "image/") || !strings.HasSuffix(meta, ";base64") {
		return ErrInvalidAvatar
	}
	if base64.StdEncoding.DecodedLen(len(data)) > MaxAvatarBytes+2 {
		return ErrInvalidAvatar
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil || len(raw) > MaxAvatarBytes {
		return ErrInvalidAvatar
	}
	return nil
}

// storedProfile reads the stored profile; found is false when none is stored
// or it cannot be decoded.
func storedProfile(ctx context.Context, st storage.Store) (domain.Profile, bool) {
	var p domain.Profile
	found, err := storage.ReadJSON(ctx, st, storage.ProfileKey, &p)
	if err != nil {
		log.Warn().Err(err).Msg("profile: unreadable profile treated as empty")
		return domain.Profile{}, false
	}
	return p, found
}
