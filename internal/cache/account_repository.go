package cache

import (
	"context"

	"github.com/ledgerforge/ledgerd/internal/domain"
	"github.com/ledgerforge/ledgerd/internal/repository"
)

// CachedAccountRepository decorates a repository.AccountRepository with
// a cache-aside read path. Batch reads (GetBatch) deliberately bypass
// the cache, so they always return the current lock_version. The
// transaction engine's Phase 1 read does not go through this type at
// all; it uses TransactionRepository.ReadAccountsForUpdate.
type CachedAccountRepository struct {
	inner repository.AccountRepository
	cache *Cache
}

func NewCachedAccountRepository(inner repository.AccountRepository, cache *Cache) *CachedAccountRepository {
	return &CachedAccountRepository{inner: inner, cache: cache}
}

func (r *CachedAccountRepository) Create(ctx context.Context, a *domain.Account) error {
	if err := r.inner.Create(ctx, a); err != nil {
		return err
	}
	r.cache.SetAccount(ctx, a)
	return nil
}

func (r *CachedAccountRepository) Get(ctx context.Context, organizationID, ledgerID, accountID string) (*domain.Account, error) {
	if a, ok := r.cache.GetAccount(ctx, organizationID, ledgerID, accountID); ok {
		return a, nil
	}
	a, err := r.inner.Get(ctx, organizationID, ledgerID, accountID)
	if err != nil {
		return nil, err
	}
	r.cache.SetAccount(ctx, a)
	return a, nil
}

// GetBatch bypasses the cache; see type doc.
func (r *CachedAccountRepository) GetBatch(ctx context.Context, organizationID, ledgerID string, accountIDs []string) (map[string]*domain.Account, error) {
	return r.inner.GetBatch(ctx, organizationID, ledgerID, accountIDs)
}

func (r *CachedAccountRepository) List(ctx context.Context, organizationID, ledgerID string, limit, offset int) ([]*domain.Account, error) {
	return r.inner.List(ctx, organizationID, ledgerID, limit, offset)
}

func (r *CachedAccountRepository) Delete(ctx context.Context, organizationID, ledgerID, accountID string) error {
	if err := r.inner.Delete(ctx, organizationID, ledgerID, accountID); err != nil {
		return err
	}
	r.cache.InvalidateAccount(ctx, organizationID, ledgerID, accountID)
	return nil
}
