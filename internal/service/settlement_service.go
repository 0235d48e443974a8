package service

import (
	"context"

	"github.com/ledgerforge/ledgerd/internal/apperr"
	"github.com/ledgerforge/ledgerd/internal/domain"
	"github.com/ledgerforge/ledgerd/internal/repository"
)

// SettlementService drives the settlement engine (spec.md §4.2, §4.5):
// drafting a settlement, attaching/detaching posted entries, and
// transitioning drafting->processing, which generates the balancing
// Transaction via TransactionService under the same retry policy as
// ordinary transactions.
type SettlementService struct {
	settlements  repository.SettlementRepository
	accounts     repository.AccountRepository
	ledgers      repository.LedgerRepository
	transactions *TransactionService
}

func NewSettlementService(settlements repository.SettlementRepository, accounts repository.AccountRepository, ledgers repository.LedgerRepository, transactions *TransactionService) *SettlementService {
	return &SettlementService{settlements: settlements, accounts: accounts, ledgers: ledgers, transactions: transactions}
}

// Create drafts a new settlement. Currency/exponent/normalBalance are
// copied from the Ledger and the settled Account, not caller input
// (spec.md §4.2, "once set they are immutable").
func (s *SettlementService) Create(ctx context.Context, organizationID, ledgerID, settledAccountID, contraAccountID, description, externalReference string) (*domain.Settlement, error) {
	ledger, err := s.ledgers.Get(ctx, organizationID, ledgerID)
	if err != nil {
		return nil, err
	}
	settled, err := s.accounts.Get(ctx, organizationID, ledgerID, settledAccountID)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.Get(ctx, organizationID, ledgerID, contraAccountID); err != nil {
		return nil, err
	}

	settlement, err := domain.NewSettlement(domain.NewSettlementParams{
		OrganizationID:    organizationID,
		SettledAccountID:  settledAccountID,
		ContraAccountID:   contraAccountID,
		NormalBalance:     settled.NormalBalance,
		Currency:          ledger.Currency,
		CurrencyExponent:  ledger.CurrencyExponent,
		Description:       description,
		ExternalReference: externalReference,
	})
	if err != nil {
		return nil, err
	}

	if err := s.settlements.Create(ctx, settlement); err != nil {
		return nil, err
	}
	return settlement, nil
}

func (s *SettlementService) Get(ctx context.Context, organizationID, settlementID string) (*domain.Settlement, error) {
	return s.settlements.Get(ctx, organizationID, settlementID)
}

func (s *SettlementService) List(ctx context.Context, organizationID string, limit, offset int) ([]*domain.Settlement, error) {
	return s.settlements.List(ctx, organizationID, limit, offset)
}

// AddEntries attaches entryIDs to a drafting settlement, first checking
// I8 eligibility (belongs to settledAccountId, posted, unattached) via
// the repository's eligibility query, then rejecting the whole batch if
// any requested entry is not eligible.
func (s *SettlementService) AddEntries(ctx context.Context, organizationID, settlementID string, entryIDs []string) error {
	settlement, err := s.settlements.Get(ctx, organizationID, settlementID)
	if err != nil {
		return err
	}
	if !settlement.Status.IsMutable() {
		return apperr.Conflict("settlement is not in drafting status")
	}

	eligible, err := s.settlements.EntriesEligibleForAttachment(ctx, organizationID, settlement.SettledAccountID, entryIDs)
	if err != nil {
		return err
	}
	if len(eligible) != len(entryIDs) {
		return apperr.Validation("one or more entries are not eligible for attachment (I8)")
	}

	return s.settlements.AddEntries(ctx, organizationID, settlementID, entryIDs)
}

func (s *SettlementService) RemoveEntries(ctx context.Context, organizationID, settlementID string, entryIDs []string) error {
	settlement, err := s.settlements.Get(ctx, organizationID, settlementID)
	if err != nil {
		return err
	}
	if !settlement.Status.IsMutable() {
		return apperr.Conflict("settlement is not in drafting status")
	}
	return s.settlements.RemoveEntries(ctx, organizationID, settlementID, entryIDs)
}

// Process runs the drafting->processing transition (spec.md §4.2): it
// computes the net amount of the attached entries and generates a
// balancing Transaction (one entry on settledAccount, one on
// contraAccount, opposing directions) via the same engine and retry
// policy as ordinary transactions.
func (s *SettlementService) Process(ctx context.Context, organizationID, ledgerID, settlementID string) (*domain.Settlement, error) {
	settlement, err := s.settlements.Get(ctx, organizationID, settlementID)
	if err != nil {
		return nil, err
	}
	if !settlement.Status.CanTransitionTo(domain.SettlementProcessing) {
		return nil, apperr.Conflict("settlement cannot transition to processing from " + string(settlement.Status))
	}
	if len(settlement.AttachedEntries) == 0 {
		return nil, apperr.Validation("settlement has no attached entries")
	}

	amount, err := s.netAmount(ctx, organizationID, ledgerID, settlement)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, apperr.Validation("settlement net amount must be positive")
	}

	settledDirection := domain.Credit
	contraDirection := domain.Debit
	if settlement.NormalBalance == domain.NormalBalanceCredit {
		settledDirection = domain.Debit
		contraDirection = domain.Credit
	}

	tx, err := s.transactions.Create(ctx, CreateParams{
		OrganizationID: organizationID,
		LedgerID:       ledgerID,
		Description:    "settlement " + settlement.ID,
		Entries: []domain.Entry{
			{AccountID: settlement.SettledAccountID, Direction: settledDirection, Amount: amount, Currency: settlement.Currency, CurrencyExponent: settlement.CurrencyExponent},
			{AccountID: settlement.ContraAccountID, Direction: contraDirection, Amount: amount, Currency: settlement.Currency, CurrencyExponent: settlement.CurrencyExponent},
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.settlements.UpdateStatus(ctx, organizationID, settlementID, domain.SettlementDrafting, domain.SettlementProcessing, tx.ID); err != nil {
		return nil, err
	}

	if err := s.settlements.UpdateStatus(ctx, organizationID, settlementID, domain.SettlementProcessing, domain.SettlementPending, tx.ID); err != nil {
		return nil, err
	}

	settlement.Amount = amount
	settlement.TransactionID = tx.ID
	settlement.Status = domain.SettlementPending
	return settlement, nil
}

// PostGeneratedTransaction posts the settlement's balancing
// transaction and advances the settlement from pending to posted.
func (s *SettlementService) PostGeneratedTransaction(ctx context.Context, organizationID, ledgerID, settlementID string) (*domain.Settlement, error) {
	settlement, err := s.settlements.Get(ctx, organizationID, settlementID)
	if err != nil {
		return nil, err
	}
	if settlement.Status != domain.SettlementPending {
		return nil, apperr.Conflict("settlement is not pending")
	}

	if _, err := s.transactions.Post(ctx, organizationID, ledgerID, settlement.TransactionID); err != nil {
		return nil, err
	}

	if err := s.settlements.UpdateStatus(ctx, organizationID, settlementID, domain.SettlementPending, domain.SettlementPosted, settlement.TransactionID); err != nil {
		return nil, err
	}
	settlement.Status = domain.SettlementPosted
	return settlement, nil
}

func (s *SettlementService) netAmount(ctx context.Context, organizationID, ledgerID string, settlement *domain.Settlement) (int64, error) {
	entryIDs := make([]string, 0, len(settlement.AttachedEntries))
	for id := range settlement.AttachedEntries {
		entryIDs = append(entryIDs, id)
	}
	// These entries are already attached (entryIDs comes from
	// settlement.AttachedEntries), so the eligibility query's "not yet
	// attached" filter would always exclude them; fetch by id instead.
	entries, err := s.settlements.EntriesByID(ctx, organizationID, entryIDs)
	if err != nil {
		return 0, err
	}

	var net int64
	for _, e := range entries {
		increasing := (settlement.NormalBalance == domain.NormalBalanceDebit && e.Direction == domain.Debit) ||
			(settlement.NormalBalance == domain.NormalBalanceCredit && e.Direction == domain.Credit)
		if increasing {
			net += e.Amount
		} else {
			net -= e.Amount
		}
	}
	if net < 0 {
		net = -net
	}
	return net, nil
}
