package client

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"gitlab.com/sgtreasury/tally/internal/models"
)

// TreasurerCache holds one session's treasurer view: the club the user
// treasures and its memberships. A user who treasures nothing caches as nil.
type TreasurerCache struct {
	client *Client

	// fetch serializes network refreshes; mu guards the snapshot.
	fetch  sync.Mutex
	mu     sync.RWMutex
	userID string
	view   *models.TreasurerView
	loaded bool
}

// NewTreasurerCache creates an empty cache backed by c.
func NewTreasurerCache(c *Client) *TreasurerCache {
	return &TreasurerCache{client: c}
}

// Hydrate fetches the view once per user. Later calls for the same user
// return the cached snapshot until Refresh or Clear.
func (tc *TreasurerCache) Hydrate(ctx context.Context, userID string) (*models.TreasurerView, error) {
	tc.fetch.Lock()
	defer tc.fetch.Unlock()

	tc.mu.RLock()
	hit := tc.loaded && tc.userID == userID
	view := clone(tc.view)
	tc.mu.RUnlock()
	if hit {
		return view, nil
	}
	return tc.refreshLocked(ctx, userID)
}

// Refresh always refetches.
func (tc *TreasurerCache) Refresh(ctx context.Context, userID string) (*models.TreasurerView, error) {
	tc.fetch.Lock()
	defer tc.fetch.Unlock()
	return tc.refreshLocked(ctx, userID)
}

func (tc *TreasurerCache) refreshLocked(ctx context.Context, userID string) (*models.TreasurerView, error) {
	view, err := tc.client.TreasurerView(ctx, userID)
	if IsStatus(err, http.StatusForbidden) {
		view, err = nil, nil
	}
	if err != nil {
		return nil, err
	}

	tc.mu.Lock()
	tc.userID = userID
	tc.view = view
	tc.loaded = true
	tc.mu.Unlock()
	return clone(view), nil
}

// Clear empties the cache, typically on sign-out.
func (tc *TreasurerCache) Clear() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.userID = ""
	tc.view = nil
	tc.loaded = false
}

// Get returns a copy of the snapshot and whether one has been loaded.
func (tc *TreasurerCache) Get() (*models.TreasurerView, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return clone(tc.view), tc.loaded
}

func clone(v *models.TreasurerView) *models.TreasurerView {
	if v == nil {
		return nil
	}
	out := *v
	out.Memberships = slices.Clone(v.Memberships)
	return &out
}
