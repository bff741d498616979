package classifier

import (
	"context"
	"errors"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// MappingStore persists merchant mappings.
type MappingStore interface {
	GetMerchantMapping(ctx context.Context, userID int64, merchant string) (*model.MerchantMapping, error)
	SaveMerchantMapping(ctx context.Context, m *model.MerchantMapping) error
}

// StoreCache adapts a MappingStore to MerchantCache so learned mappings
// survive restarts.
type StoreCache struct {
	store MappingStore
}

// NewStoreCache wraps store.
func NewStoreCache(store MappingStore) *StoreCache {
	return &StoreCache{store: store}
}

// Get implements MerchantCache.
func (s *StoreCache) Get(ctx context.Context, userID int64, merchant string) (model.MerchantMapping, bool, error) {
	m, err := s.store.GetMerchantMapping(ctx, userID, merchant)
	if errors.Is(err, common.ErrNotFound) {
		return model.MerchantMapping{}, false, nil
	}
	if err != nil {
		return model.MerchantMapping{}, false, err
	}
	return *m, true, nil
}

// Set implements MerchantCache.
func (s *StoreCache) Set(ctx context.Context, mapping model.MerchantMapping) error {
	return s.store.SaveMerchantMapping(ctx, &mapping)
}
