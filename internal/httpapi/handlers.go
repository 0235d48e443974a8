package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerforge/ledgerd/internal/apperr"
	"github.com/ledgerforge/ledgerd/internal/auth"
	"github.com/ledgerforge/ledgerd/internal/domain"
	"github.com/ledgerforge/ledgerd/internal/service"
	"github.com/ledgerforge/ledgerd/pkg/money"
)

// Handlers holds every service the HTTP adapter decodes requests into
// and encodes responses out of (spec.md §6's "HTTP adapter ~20%").
type Handlers struct {
	Ledgers      *service.LedgerService
	Accounts     *service.AccountService
	Transactions *service.TransactionService
	Settlements  *service.SettlementService
	Monitors     *service.MonitorService
	Statements   *service.StatementService

	AllowPostedTransactionDeletion bool
}

// requireOrganizationID extracts the authenticated organization ID
// placed in the request context by the Auth middleware. Per spec.md
// §9 ("fail loudly when either is missing, never synthesize a
// default"), a missing value is treated as a bug in the middleware
// chain rather than silently proceeding with an empty organization
// ID, which would otherwise scope a request to every organization's
// rows with id = ''.
func requireOrganizationID(w http.ResponseWriter, r *http.Request) (string, bool) {
	orgID, ok := auth.OrganizationIDFromContext(r.Context())
	if !ok || orgID == "" {
		writeError(w, r, apperr.Internal("request context is missing an organization id", nil))
		return "", false
	}
	return orgID, true
}

func pagination(r *http.Request) (limit, offset int) {
	limit, offset = 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, apperr.Validation("malformed request body: "+err.Error()))
		return false
	}
	return true
}

// --- Ledgers ---

type createLedgerRequest struct {
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	Currency         string         `json:"currency"`
	CurrencyExponent int            `json:"currencyExponent"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

func (h *Handlers) CreateLedger(w http.ResponseWriter, r *http.Request) {
	var req createLedgerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	l, err := h.Ledgers.Create(r.Context(), domain.NewLedgerParams{
		OrganizationID:   orgID,
		Name:             req.Name,
		Description:      req.Description,
		Currency:         req.Currency,
		CurrencyExponent: req.CurrencyExponent,
		Metadata:         req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handlers) GetLedger(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	l, err := h.Ledgers.Get(r.Context(), orgID, chi.URLParam(r, "ledgerId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handlers) ListLedgers(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)
	ledgers, err := h.Ledgers.List(r.Context(), orgID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ledgers)
}

func (h *Handlers) DeleteLedger(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	if err := h.Ledgers.Delete(r.Context(), orgID, chi.URLParam(r, "ledgerId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Accounts ---

type createAccountRequest struct {
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	NormalBalance domain.NormalBalance `json:"normalBalance"`
	Metadata      map[string]any      `json:"metadata,omitempty"`
}

func (h *Handlers) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	a, err := h.Accounts.Create(r.Context(), domain.NewAccountParams{
		OrganizationID: orgID,
		LedgerID:       chi.URLParam(r, "ledgerId"),
		Name:           req.Name,
		Description:    req.Description,
		NormalBalance:  req.NormalBalance,
		Metadata:       req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) GetAccount(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	a, err := h.Accounts.Get(r.Context(), orgID, chi.URLParam(r, "ledgerId"), chi.URLParam(r, "accountId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)
	accounts, err := h.Accounts.List(r.Context(), orgID, chi.URLParam(r, "ledgerId"), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	err := h.Accounts.Delete(r.Context(), orgID, chi.URLParam(r, "ledgerId"), chi.URLParam(r, "accountId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Transactions ---

type entryRequest struct {
	AccountID        string          `json:"accountId"`
	Direction        domain.Direction `json:"direction"`
	Amount           int64           `json:"amount"`
	Currency         string          `json:"currency"`
	CurrencyExponent int             `json:"currencyExponent"`
}

type createTransactionRequest struct {
	Description    string                    `json:"description,omitempty"`
	Status         domain.TransactionStatus  `json:"status,omitempty"`
	EffectiveAt    *time.Time                `json:"effectiveAt,omitempty"`
	LedgerEntries  []entryRequest            `json:"ledgerEntries"`
	Metadata       map[string]any            `json:"metadata,omitempty"`
	IdempotencyKey string                    `json:"idempotencyKey,omitempty"`
}

func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}

	entries := make([]domain.Entry, len(req.LedgerEntries))
	for i, e := range req.LedgerEntries {
		entries[i] = domain.Entry{
			AccountID:        e.AccountID,
			Direction:        e.Direction,
			Amount:           e.Amount,
			Currency:         e.Currency,
			CurrencyExponent: e.CurrencyExponent,
		}
	}

	tx, err := h.Transactions.Create(r.Context(), service.CreateParams{
		OrganizationID: orgID,
		LedgerID:       chi.URLParam(r, "ledgerId"),
		Entries:        entries,
		IdempotencyKey: req.IdempotencyKey,
		Description:    req.Description,
		Status:         req.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handlers) PostTransaction(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	tx, err := h.Transactions.Post(r.Context(), orgID, chi.URLParam(r, "ledgerId"), chi.URLParam(r, "transactionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	tx, err := h.Transactions.Get(r.Context(), orgID, chi.URLParam(r, "ledgerId"), chi.URLParam(r, "transactionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)
	txs, err := h.Transactions.List(r.Context(), orgID, chi.URLParam(r, "ledgerId"), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *Handlers) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	err := h.Transactions.Archive(r.Context(), orgID, chi.URLParam(r, "ledgerId"), chi.URLParam(r, "transactionId"), h.AllowPostedTransactionDeletion)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Settlements ---

type createSettlementRequest struct {
	SettledAccountID  string `json:"settledAccountId"`
	ContraAccountID   string `json:"contraAccountId"`
	Description       string `json:"description,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
}

func (h *Handlers) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	var req createSettlementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	s, err := h.Settlements.Create(r.Context(), orgID, chi.URLParam(r, "ledgerId"), req.SettledAccountID, req.ContraAccountID, req.Description, req.ExternalReference)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) GetSettlement(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	s, err := h.Settlements.Get(r.Context(), orgID, chi.URLParam(r, "settlementId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) ListSettlements(w http.ResponseWriter, r *http.Request) {
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)
	settlements, err := h.Settlements.List(r.Context(), orgID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settlements)
}

type entryIDsRequest struct {
	EntryIDs []string `json:"entryIds"`
}

func (h *Handlers) AddSettlementEntries(w http.ResponseWriter, r *http.Request) {
	var req entryIDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	if err := h.Settlements.AddEntries(r.Context(), orgID, chi.URLParam(r, "settlementId"), req.EntryIDs); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) RemoveSettlementEntries(w http.ResponseWriter, r *http.Request) {
	var req entryIDsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	if err := h.Settlements.RemoveEntries(r.Context(), orgID, chi.URLParam(r, "settlementId"), req.EntryIDs); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransitionSettlement handles POST /ledgers/{ledgerId}/settlements/{id}/{status}
// (spec.md §6), driving the drafting->processing->pending->posted chain.
func (h *Handlers) TransitionSettlement(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "status")
	ledgerID := chi.URLParam(r, "ledgerId")
	settlementID := chi.URLParam(r, "settlementId")
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}

	var s *domain.Settlement
	var err error
	switch target {
	case "processing":
		s, err = h.Settlements.Process(r.Context(), orgID, ledgerID, settlementID)
	case "posted":
		s, err = h.Settlements.PostGeneratedTransaction(r.Context(), orgID, ledgerID, settlementID)
	default:
		writeError(w, r, apperr.Validation("unsupported settlement transition: "+target))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// --- Monitors ---

type createMonitorRequest struct {
	AccountID       string                  `json:"accountId"`
	AlertConditions []domain.AlertCondition `json:"alertConditions"`
	Description     string                  `json:"description,omitempty"`
	Metadata        map[string]any          `json:"metadata,omitempty"`
}

func (h *Handlers) CreateMonitor(w http.ResponseWriter, r *http.Request) {
	var req createMonitorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.Monitors.Create(r.Context(), domain.NewBalanceMonitorParams{
		AccountID:       req.AccountID,
		AlertConditions: req.AlertConditions,
		Description:     req.Description,
		Metadata:        req.Metadata,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) GetMonitor(w http.ResponseWriter, r *http.Request) {
	m, err := h.Monitors.Get(r.Context(), chi.URLParam(r, "monitorId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) ListMonitorsByAccount(w http.ResponseWriter, r *http.Request) {
	monitors, err := h.Monitors.ListByAccount(r.Context(), chi.URLParam(r, "accountId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, monitors)
}

func (h *Handlers) DeleteMonitor(w http.ResponseWriter, r *http.Request) {
	if err := h.Monitors.Delete(r.Context(), chi.URLParam(r, "monitorId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Statements ---

type generateStatementRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// statementResponse embeds the statement as-is plus decimal-formatted
// renderings of its starting/ending posted balances, since int64 minor
// units ("150000000") is the wrong thing to hand a human-facing client.
type statementResponse struct {
	*domain.AccountStatement
	StartingPostedFormatted string `json:"startingPostedFormatted"`
	EndingPostedFormatted   string `json:"endingPostedFormatted"`
}

func formatStatement(s *domain.AccountStatement) statementResponse {
	return statementResponse{
		AccountStatement:        s,
		StartingPostedFormatted: money.FromMinorUnits(s.StartingBalances.PostedAmount, s.CurrencyExponent),
		EndingPostedFormatted:   money.FromMinorUnits(s.EndingBalances.PostedAmount, s.CurrencyExponent),
	}
}

func (h *Handlers) GenerateStatement(w http.ResponseWriter, r *http.Request) {
	var req generateStatementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	orgID, ok := requireOrganizationID(w, r)
	if !ok {
		return
	}
	s, err := h.Statements.Generate(r.Context(), orgID, chi.URLParam(r, "ledgerId"), chi.URLParam(r, "accountId"), req.Start, req.End)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, formatStatement(s))
}

func (h *Handlers) GetStatement(w http.ResponseWriter, r *http.Request) {
	s, err := h.Statements.Get(r.Context(), chi.URLParam(r, "statementId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, formatStatement(s))
}

func (h *Handlers) ListStatementsByAccount(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	statements, err := h.Statements.ListByAccount(r.Context(), chi.URLParam(r, "accountId"), limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statements)
}

// Health reports liveness; it performs no dependency checks, mirroring
// the teacher's unauthenticated /health/live endpoint.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
