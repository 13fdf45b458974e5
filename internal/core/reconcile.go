package core

// reconcile.go decides, for each validated record, whether to create a new
// account or fill in an existing one.
//
// Existing accounts are matched by normalized email. Updates never overwrite:
// a profile field is written only when the stored value is empty.

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/userimport/internal/logging"
)

// maxLoginAttempts bounds the numeric suffix search for a free login.
const maxLoginAttempts = 10000

// Importer reconciles CSV records against the user store.
type Importer struct {
	users   UserStore
	meta    MetaStore
	avatars *Sideloader
	hasher  PasswordHasher
	now     func() time.Time
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithSideloader enables avatar sideloading from user_profile_picture.
func WithSideloader(s *Sideloader) ImporterOption {
	return func(im *Importer) { im.avatars = s }
}

// WithPasswordHasher overrides the bcrypt cost used for generated passwords.
func WithPasswordHasher(h PasswordHasher) ImporterOption {
	return func(im *Importer) { im.hasher = h }
}

// WithClock overrides the time source used for fallback logins.
func WithClock(now func() time.Time) ImporterOption {
	return func(im *Importer) { im.now = now }
}

// NewImporter creates an Importer.
func NewImporter(users UserStore, meta MetaStore, opts ...ImporterOption) *Importer {
	im := &Importer{
		users: users,
		meta:  meta,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Result is the outcome of reconciling one record.
type Result struct {
	Action Action
	UserID int64
	// AvatarErr is set when the profile picture could not be stored. It
	// never fails the row.
	AvatarErr error
}

// Reconcile validates rec and creates or updates the matching account.
func (im *Importer) Reconcile(ctx context.Context, rec Record) (Result, error) {
	if err := ValidateRecord(rec); err != nil {
		return Result{}, err
	}
	email := NormalizeEmail(rec.Email)
	if email == "" {
		return Result{}, newImportError(InvalidRecord, MsgInvalidEmail, nil)
	}

	existing, err := im.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return im.create(ctx, email, rec)
	case err != nil:
		return Result{}, newImportError(UpdateFailed, "Could not look up existing user", err)
	default:
		return im.update(ctx, existing, rec)
	}
}

func (im *Importer) create(ctx context.Context, email string, rec Record) (Result, error) {
	login := ""
	if rec.Login != "" {
		login = SanitizeUser(rec.Login, false)
	}
	if login == "" {
		login = GenerateUsername(rec, im.now())
	}
	login, err := im.freeLogin(ctx, login)
	if err != nil {
		return Result{}, storeError(CreateFailed, err)
	}

	nu := NewUser{
		Login: login,
		Email: email,
		Role:  ValidRole(rec.Role),
	}
	if rec.FirstName != "" {
		nu.FirstName = SanitizeText(rec.FirstName)
	}
	if rec.LastName != "" {
		nu.LastName = SanitizeText(rec.LastName)
	}
	if nu.FirstName != "" || nu.LastName != "" {
		nu.DisplayName = strings.TrimSpace(nu.FirstName + " " + nu.LastName)
	}
	if rec.Nickname != "" {
		nu.Nickname = SanitizeText(rec.Nickname)
	}
	if nu.Nickname == "" {
		nu.Nickname = GenerateNickname(rec)
	}
	if rec.Description != "" {
		nu.Description = TruncateRunes(SanitizeTextarea(rec.Description), MaxDescriptionLength)
	}
	if rec.URL != "" {
		nu.URL = SanitizeURL(rec.URL)
	}

	password, err := GeneratePassword(GeneratedPasswordLength)
	if err != nil {
		return Result{}, storeError(CreateFailed, err)
	}
	if nu.PasswordHash, err = im.hasher.Hash(password); err != nil {
		return Result{}, storeError(CreateFailed, err)
	}

	id, err := im.users.CreateUser(ctx, nu)
	if err != nil {
		return Result{}, storeError(CreateFailed, err)
	}

	if _, err := mergeSocial(ctx, im.meta, id, rec, false); err != nil {
		return Result{UserID: id}, storeError(CreateFailed, err)
	}

	res := Result{Action: ActionImported, UserID: id}
	if rec.ProfilePicture != "" && im.avatars != nil {
		_, res.AvatarErr = im.avatars.SetAvatarFromURL(ctx, id, rec.ProfilePicture)
	}
	logging.FromContext(ctx).Debug("user created", "user_id", id, "login", login)
	return res, nil
}

// freeLogin returns base, or base followed by the smallest positive integer
// that makes it unused. base is shortened so candidates fit MaxLoginLength.
func (im *Importer) freeLogin(ctx context.Context, base string) (string, error) {
	candidate := TruncateRunes(base, MaxLoginLength)
	for n := 1; n <= maxLoginAttempts; n++ {
		taken, err := im.users.LoginExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check login %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		suffix := strconv.Itoa(n)
		candidate = TruncateRunes(base, MaxLoginLength-len(suffix)) + suffix
	}
	return "", fmt.Errorf("no free login for %q", base)
}

func (im *Importer) update(ctx context.Context, u *User, rec Record) (Result, error) {
	changed := false
	namesSet := false

	if u.FirstName == "" && rec.FirstName != "" {
		if v := SanitizeText(rec.FirstName); v != "" {
			u.FirstName = v
			changed, namesSet = true, true
		}
	}
	if u.LastName == "" && rec.LastName != "" {
		if v := SanitizeText(rec.LastName); v != "" {
			u.LastName = v
			changed, namesSet = true, true
		}
	}
	if namesSet {
		u.DisplayName = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}

	if u.Nickname == "" {
		nick := ""
		if rec.Nickname != "" {
			nick = SanitizeText(rec.Nickname)
		}
		if nick == "" && namesSet {
			nick = GenerateNickname(rec)
		}
		if nick != "" {
			u.Nickname = nick
			changed = true
		}
	}
	if u.Description == "" && rec.Description != "" {
		if v := TruncateRunes(SanitizeTextarea(rec.Description), MaxDescriptionLength); v != "" {
			u.Description = v
			changed = true
		}
	}
	if u.URL == "" && rec.URL != "" {
		if v := SanitizeURL(rec.URL); v != "" {
			u.URL = v
			changed = true
		}
	}

	if changed {
		if err := im.users.UpdateUser(ctx, u); err != nil {
			return Result{UserID: u.ID}, storeError(UpdateFailed, err)
		}
	}

	metaChanged, err := mergeSocial(ctx, im.meta, u.ID, rec, true)
	if err != nil {
		return Result{UserID: u.ID}, storeError(UpdateFailed, err)
	}

	res := Result{UserID: u.ID}
	if rec.ProfilePicture != "" && im.avatars != nil {
		has, err := im.avatars.HasAvatar(ctx, u.ID)
		switch {
		case err != nil:
			res.AvatarErr = err
		case !has:
			stored, err := im.avatars.SetAvatarFromURL(ctx, u.ID, rec.ProfilePicture)
			res.AvatarErr = err
			changed = changed || stored
		}
	}

	res.Action = ActionSkipped
	if changed || metaChanged {
		res.Action = ActionUpdated
	}
	return res, nil
}
