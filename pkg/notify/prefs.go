package notify

import (
	"context"
	"fmt"

	"github.com/finmate-app/finmate/pkg/model"
	"github.com/finmate-app/finmate/pkg/storage"
)

// Resolver looks up effective notification preferences, falling back to
// built-in defaults for users who never configured one. A missing row is not
// an error.
type Resolver struct {
	storage storage.Storage
}

// NewResolver creates a preference resolver.
func NewResolver(store storage.Storage) *Resolver {
	return &Resolver{storage: store}
}

// Resolve returns the stored preference for (user, type), or the default
// (enabled, both channels, 80% threshold) when none exists.
func (r *Resolver) Resolve(ctx context.Context, userID string, typ model.PreferenceType) (*model.NotificationPreference, error) {
	pref, err := r.storage.GetPreference(ctx, userID, typ)
	if err != nil {
		return nil, fmt.Errorf("resolve preference: %w", err)
	}
	if pref == nil {
		return model.DefaultPreference(userID, typ), nil
	}
	return pref, nil
}
