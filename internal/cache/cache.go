// Package cache provides a Redis-backed cache-aside layer for account
// and ledger reads, grounded on the teacher's infra/redis price cache:
// same get-or-miss shape, same JSON envelope, same short TTL, adapted
// from *big.Int USD prices to Account/Ledger snapshots.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerforge/ledgerd/internal/domain"
	"github.com/ledgerforge/ledgerd/internal/logger"
)

const (
	// DefaultTTL balances staleness against the write rate an active
	// ledger account sees: long enough to absorb read bursts, short
	// enough that a stale cached balance is never visible for long.
	DefaultTTL = 5 * time.Second

	accountKeyPrefix = "account:"
	ledgerKeyPrefix  = "ledger:"
)

// Cache wraps a Redis client with typed get/set/invalidate for the two
// read-heavy entities (Account, Ledger). Every write path must call
// InvalidateAccount/InvalidateLedger so a stale balance is never served
// past the write that changed it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func New(client *redis.Client, log *logger.Logger) *Cache {
	return &Cache{client: client, ttl: DefaultTTL, log: log.WithField("component", "cache")}
}

func NewWithTTL(client *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, log: log.WithField("component", "cache")}
}

func accountKey(organizationID, ledgerID, accountID string) string {
	return fmt.Sprintf("%s%s:%s:%s", accountKeyPrefix, organizationID, ledgerID, accountID)
}

func ledgerKey(organizationID, ledgerID string) string {
	return fmt.Sprintf("%s%s:%s", ledgerKeyPrefix, organizationID, ledgerID)
}

func (c *Cache) GetAccount(ctx context.Context, organizationID, ledgerID, accountID string) (*domain.Account, bool) {
	val, err := c.client.Get(ctx, accountKey(organizationID, ledgerID, accountID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.WithError(err).Warn("cache get failed", "accountId", accountID)
		return nil, false
	}

	var a domain.Account
	if err := json.Unmarshal([]byte(val), &a); err != nil {
		c.log.WithError(err).Warn("cache value unmarshal failed", "accountId", accountID)
		return nil, false
	}
	return &a, true
}

func (c *Cache) SetAccount(ctx context.Context, a *domain.Account) {
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, accountKey(a.OrganizationID, a.LedgerID, a.ID), data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("cache set failed", "accountId", a.ID)
	}
}

// InvalidateAccount must be called by every code path that writes an
// account (the transaction engine's Phase 3), since a cached balance
// read right after a version-checked update would otherwise be stale
// until TTL expiry.
func (c *Cache) InvalidateAccount(ctx context.Context, organizationID, ledgerID, accountID string) {
	if err := c.client.Del(ctx, accountKey(organizationID, ledgerID, accountID)).Err(); err != nil {
		c.log.WithError(err).Warn("cache invalidate failed", "accountId", accountID)
	}
}

func (c *Cache) GetLedger(ctx context.Context, organizationID, ledgerID string) (*domain.Ledger, bool) {
	val, err := c.client.Get(ctx, ledgerKey(organizationID, ledgerID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.WithError(err).Warn("cache get failed", "ledgerId", ledgerID)
		return nil, false
	}

	var l domain.Ledger
	if err := json.Unmarshal([]byte(val), &l); err != nil {
		c.log.WithError(err).Warn("cache value unmarshal failed", "ledgerId", ledgerID)
		return nil, false
	}
	return &l, true
}

// SetLedger uses a longer TTL than accounts: currency/exponent/name are
// immutable or rarely mutated once a ledger exists (spec.md §3).
func (c *Cache) SetLedger(ctx context.Context, l *domain.Ledger) {
	data, err := json.Marshal(l)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, ledgerKey(l.OrganizationID, l.ID), data, 10*time.Minute).Err(); err != nil {
		c.log.WithError(err).Warn("cache set failed", "ledgerId", l.ID)
	}
}

func (c *Cache) InvalidateLedger(ctx context.Context, organizationID, ledgerID string) {
	if err := c.client.Del(ctx, ledgerKey(organizationID, ledgerID)).Err(); err != nil {
		c.log.WithError(err).Warn("cache invalidate failed", "ledgerId", ledgerID)
	}
}
