// Package taggers tracks which Telegram accounts may tag stickers.
//
// An account moves through Unknown -> Registered(allowed=false) ->
// Registered(allowed=true). Registration is self-service; approval needs the
// administrative secret. Nothing ever removes a tagger or revokes approval.
package taggers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mikepea/stickerdoko/pkg/stickerdoko/auth"
	apperrors "github.com/mikepea/stickerdoko/pkg/stickerdoko/errors"
	"github.com/mikepea/stickerdoko/pkg/stickerdoko/models"
	"gorm.io/gorm"
)

// Registry is the authorization registry
type Registry struct {
	db     *gorm.DB
	secret *auth.Secret
	log    *slog.Logger
}

// NewRegistry creates a registry checking approvals against secret
func NewRegistry(db *gorm.DB, secret *auth.Secret, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{db: db, secret: secret, log: log}
}

// Register records a new, not yet allowed tagger. Registering twice returns
// the existing tagger together with ErrAlreadyRegistered.
func (r *Registry) Register(ctx context.Context, userID int64, username string) (*models.Tagger, error) {
	if username == "" {
		r.log.InfoContext(ctx, "user without username attempted to register", "user_id", userID)
		return nil, apperrors.UsernameMissing("a username is required to register")
	}

	tagger := models.Tagger{UserID: userID, Username: username, Allowed: false}
	err := r.db.WithContext(ctx).Create(&tagger).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, lookupErr := r.findByUserID(ctx, userID)
		if lookupErr != nil {
			return nil, apperrors.StoreUnavailable(lookupErr)
		}
		if existing == nil {
			return nil, apperrors.StoreUnavailable(err)
		}
		return existing, apperrors.AlreadyRegistered("user " + username + " is already registered")
	}
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	r.log.InfoContext(ctx, "user registered for tagging permission", "user", username, "user_id", userID)
	return &tagger, nil
}

// Approve allows username to tag, after checking secret. The target's
// existence is not looked up until the secret has matched.
func (r *Registry) Approve(ctx context.Context, secret, username string) (*models.Tagger, error) {
	if !r.secret.Matches(secret) {
		r.log.WarnContext(ctx, "approval attempted with an invalid secret")
		return nil, apperrors.InvalidSecret()
	}
	return r.Allow(ctx, username)
}

// Allow sets the allowed flag on username. Callers must have authenticated
// as an administrator. Usernames are not unique across registrations, so a
// username held by more than one tagger is refused rather than guessed.
func (r *Registry) Allow(ctx context.Context, username string) (*models.Tagger, error) {
	var matches []models.Tagger
	err := r.db.WithContext(ctx).Where("username = ?", username).Order("id").Limit(2).Find(&matches).Error
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if len(matches) == 0 {
		return nil, apperrors.NotRegisteredf("user %s has not registered", username)
	}
	if len(matches) > 1 {
		r.log.WarnContext(ctx, "username is registered by several users",
			"user", username,
			"user_ids", []int64{matches[0].UserID, matches[1].UserID},
		)
		return nil, apperrors.AmbiguousUsername("username " + username + " is registered by several users")
	}
	tagger := matches[0]

	if tagger.Allowed {
		return &tagger, nil
	}

	if err := r.db.WithContext(ctx).Model(&tagger).Update("allowed", true).Error; err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	tagger.Allowed = true

	r.log.InfoContext(ctx, "allowed user to tag stickers", "user", tagger.Username, "user_id", tagger.UserID)
	return &tagger, nil
}

// Authorize returns the tagger for userID if it may tag
func (r *Registry) Authorize(ctx context.Context, userID int64) (*models.Tagger, error) {
	tagger, err := r.findByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if tagger == nil {
		return nil, apperrors.NotAuthorized("user is not registered")
	}
	if !tagger.Allowed {
		return nil, apperrors.NotAuthorized("user " + tagger.Username + " is not approved")
	}
	return tagger, nil
}

// IsAllowed reports whether userID may tag. Unknown users and store
// failures both report false.
func (r *Registry) IsAllowed(ctx context.Context, userID int64) bool {
	_, err := r.Authorize(ctx, userID)
	return err == nil
}

// ListFilter narrows List results
type ListFilter struct {
	Allowed *bool
}

// List returns taggers, newest first
func (r *Registry) List(ctx context.Context, filter ListFilter) ([]models.Tagger, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if filter.Allowed != nil {
		query = query.Where("allowed = ?", *filter.Allowed)
	}

	var taggers []models.Tagger
	if err := query.Find(&taggers).Error; err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return taggers, nil
}

func (r *Registry) findByUserID(ctx context.Context, userID int64) (*models.Tagger, error) {
	var tagger models.Tagger
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&tagger).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tagger, nil
}
