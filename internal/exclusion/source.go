// internal/exclusion/source.go
package exclusion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/koyomart/autoorder-go/internal/domain"
)

// LiveSource is the externally-scraped order-status feed listing items whose
// ordering is handled by a channel outside this system. It can and does fail;
// the Filter degrades to the cache when it does.
type LiveSource interface {
	FetchManagedItems(ctx context.Context, storeID int64) ([]domain.ExclusionEntry, error)
}

// PortalSource queries the collector's HTTP endpoint for the current
// externally-managed item list.
type PortalSource struct {
	baseURL string
	client  *http.Client
}

func NewPortalSource(baseURL string, timeout time.Duration) *PortalSource {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &PortalSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type managedItemPayload struct {
	ItemCode     string `json:"item_code"`
	Name         string `json:"name"`
	CategoryCode string `json:"category_code"`
}

func (s *PortalSource) FetchManagedItems(ctx context.Context, storeID int64) ([]domain.ExclusionEntry, error) {
	if s.baseURL == "" {
		return nil, fmt.Errorf("live source not configured")
	}

	url := fmt.Sprintf("%s/stores/%d/managed-items", s.baseURL, storeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build managed-items request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("managed-items query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("managed-items query returned status %d", resp.StatusCode)
	}

	var payload []managedItemPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode managed-items response: %w", err)
	}

	now := time.Now()
	entries := make([]domain.ExclusionEntry, 0, len(payload))
	for _, p := range payload {
		entries = append(entries, domain.ExclusionEntry{
			StoreID:         storeID,
			ItemCode:        p.ItemCode,
			Name:            p.Name,
			CategoryCode:    p.CategoryCode,
			FirstDetectedAt: now,
			LastConfirmedAt: now,
		})
	}

	return entries, nil
}
