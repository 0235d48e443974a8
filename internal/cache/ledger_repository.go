package cache

import (
	"context"

	"github.com/ledgerforge/ledgerd/internal/domain"
	"github.com/ledgerforge/ledgerd/internal/repository"
)

// CachedLedgerRepository decorates a repository.LedgerRepository with a
// cache-aside read path for Get.
type CachedLedgerRepository struct {
	inner repository.LedgerRepository
	cache *Cache
}

func NewCachedLedgerRepository(inner repository.LedgerRepository, cache *Cache) *CachedLedgerRepository {
	return &CachedLedgerRepository{inner: inner, cache: cache}
}

func (r *CachedLedgerRepository) Create(ctx context.Context, l *domain.Ledger) error {
	if err := r.inner.Create(ctx, l); err != nil {
		return err
	}
	r.cache.SetLedger(ctx, l)
	return nil
}

func (r *CachedLedgerRepository) Get(ctx context.Context, organizationID, ledgerID string) (*domain.Ledger, error) {
	if l, ok := r.cache.GetLedger(ctx, organizationID, ledgerID); ok {
		return l, nil
	}
	l, err := r.inner.Get(ctx, organizationID, ledgerID)
	if err != nil {
		return nil, err
	}
	r.cache.SetLedger(ctx, l)
	return l, nil
}

func (r *CachedLedgerRepository) List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Ledger, error) {
	return r.inner.List(ctx, organizationID, limit, offset)
}

func (r *CachedLedgerRepository) Delete(ctx context.Context, organizationID, ledgerID string) error {
	if err := r.inner.Delete(ctx, organizationID, ledgerID); err != nil {
		return err
	}
	r.cache.InvalidateLedger(ctx, organizationID, ledgerID)
	return nil
}
