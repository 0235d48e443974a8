package service

import (
	"context"

	"github.com/ledgerforge/ledgerd/internal/domain"
	"github.com/ledgerforge/ledgerd/internal/logger"
	"github.com/ledgerforge/ledgerd/internal/repository"
)

// TriggeredAlert pairs a monitor with the conditions that fired for a
// particular account snapshot.
type TriggeredAlert struct {
	Monitor   *domain.BalanceMonitor
	Account   *domain.Account
	Triggered []domain.AlertCondition
}

// MonitorService manages balance monitors and evaluates them on demand
// through EvaluateAccount, not on a polling schedule. No write path in
// this module calls EvaluateAccount: the transaction and settlement
// services do not evaluate monitors after they change an account.
type MonitorService struct {
	monitors repository.MonitorRepository
	accounts repository.AccountRepository
	log      *logger.Logger
}

func NewMonitorService(monitors repository.MonitorRepository, accounts repository.AccountRepository, log *logger.Logger) *MonitorService {
	return &MonitorService{monitors: monitors, accounts: accounts, log: log}
}

func (s *MonitorService) Create(ctx context.Context, p domain.NewBalanceMonitorParams) (*domain.BalanceMonitor, error) {
	m, err := domain.NewBalanceMonitor(p)
	if err != nil {
		return nil, err
	}
	if err := s.monitors.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MonitorService) Get(ctx context.Context, monitorID string) (*domain.BalanceMonitor, error) {
	return s.monitors.Get(ctx, monitorID)
}

func (s *MonitorService) ListByAccount(ctx context.Context, accountID string) ([]*domain.BalanceMonitor, error) {
	return s.monitors.ListByAccount(ctx, accountID)
}

func (s *MonitorService) Delete(ctx context.Context, monitorID string) error {
	return s.monitors.Delete(ctx, monitorID)
}

// EvaluateAccount loads every monitor registered against accountID and
// returns the ones with at least one triggered condition, logging a
// warning for each; the log line is the only notification it emits.
func (s *MonitorService) EvaluateAccount(ctx context.Context, organizationID, ledgerID, accountID string) ([]TriggeredAlert, error) {
	monitors, err := s.monitors.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(monitors) == 0 {
		return nil, nil
	}

	account, err := s.accounts.Get(ctx, organizationID, ledgerID, accountID)
	if err != nil {
		return nil, err
	}

	var alerts []TriggeredAlert
	for _, m := range monitors {
		triggered := m.Evaluate(*account)
		if len(triggered) == 0 {
			continue
		}
		alerts = append(alerts, TriggeredAlert{Monitor: m, Account: account, Triggered: triggered})
		if s.log != nil {
			s.log.WithField("monitorId", m.ID).WithField("accountId", accountID).
				WithField("triggeredConditions", len(triggered)).Warn("balance monitor triggered")
		}
	}
	return alerts, nil
}
