package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"finance/internal/core"
	applog "finance/internal/log"
	"finance/internal/services"
)

type errorResponse struct {
	Error   string `json:"error"`
	EntryID int64  `json:"entry_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to a status code and a message safe to show
// to clients. Only bad requests echo the error text.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrScheduleNotAdvanced):
		return http.StatusBadGateway, "payment recorded but schedule not advanced; do not retry"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, core.ErrBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, "modified concurrently, reload and retry"
	case errors.Is(err, core.ErrDependency):
		return http.StatusServiceUnavailable, "storage unavailable"
	}
	return http.StatusInternalServerError, "internal error"
}

// writeError logs err at a level matching its status and writes the
// client-facing message.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, msg := statusFor(err)
	resp := errorResponse{Error: msg}

	var advErr *core.AdvanceError
	if errors.As(err, &advErr) {
		resp.EntryID = advErr.Entry.ID()
	}

	ctx := r.Context()
	kind := http.StatusText(status)
	if status >= 500 {
		applog.LogError(ctx, "Request failed", err, operation, applog.LogFields{applog.FieldErrorKind: kind})
	} else {
		applog.FromContext(ctx).DebugContext(ctx, "Request rejected",
			applog.FieldOperation, operation,
			applog.FieldStatusCode, status,
			applog.FieldErrorKind, kind,
			applog.FieldError, err)
	}
	writeJSON(w, status, resp)
}

func unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="finance"`)
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

type amount struct {
	Amount string `json:"amount"`
	Cents  int64  `json:"amount_cents"`
}

func amountOf(m core.Money) amount {
	return amount{Amount: m.String(), Cents: m.Cents}
}

type accountResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Balance      *string   `json:"balance,omitempty"`
	BalanceCents *int64    `json:"balance_cents,omitempty"`
}

func newAccountResponse(a core.Account) accountResponse {
	return accountResponse{ID: a.ID, Name: a.Name, Description: a.Description, CreatedAt: a.CreatedAt}
}

func (a accountResponse) withBalance(m core.Money) accountResponse {
	s, c := m.String(), m.Cents
	a.Balance, a.BalanceCents = &s, &c
	return a
}

type balanceResponse struct {
	AccountID int64 `json:"account_id"`
	amount
}

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func newCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Type: string(c.Type)}
}

type entryResponse struct {
	Kind                 string `json:"kind"`
	ID                   int64  `json:"id"`
	AccountID            int64  `json:"account_id,omitempty"`
	CategoryID           int64  `json:"category_id,omitempty"`
	OriginAccountID      int64  `json:"origin_account_id,omitempty"`
	DestinationAccountID int64  `json:"destination_account_id,omitempty"`
	amount
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
}

func newTransactionResponse(t core.Transaction) entryResponse {
	return entryResponse{
		Kind:        string(core.KindTransaction),
		ID:          t.ID,
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		amount:      amountOf(t.Value),
		Description: t.Description,
		Date:        formatDate(t.Date),
	}
}

func newTransferResponse(t core.Transfer) entryResponse {
	return entryResponse{
		Kind:                 string(core.KindTransfer),
		ID:                   t.ID,
		OriginAccountID:      t.OriginAccountID,
		DestinationAccountID: t.DestinationAccountID,
		amount:               amountOf(t.Value),
		Description:          t.Description,
		Date:                 formatDate(t.Date),
	}
}

func newEntryResponse(e core.LedgerEntry) entryResponse {
	if e.Transfer != nil {
		return newTransferResponse(*e.Transfer)
	}
	if e.Transaction != nil {
		return newTransactionResponse(*e.Transaction)
	}
	return entryResponse{}
}

type feedEntryResponse struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
	amount
	Description          string `json:"description,omitempty"`
	Date                 string `json:"date"`
	CategoryID           int64  `json:"category_id,omitempty"`
	CategoryName         string `json:"category_name"`
	CategoryType         string `json:"category_type"`
	CounterpartAccountID int64  `json:"counterpart_account_id,omitempty"`
}

func newFeedResponse(feed []core.FeedEntry) []feedEntryResponse {
	out := make([]feedEntryResponse, 0, len(feed))
	for _, f := range feed {
		out = append(out, feedEntryResponse{
			Kind:                 string(f.Kind),
			ID:                   f.ID,
			amount:               amountOf(f.Value),
			Description:          f.Description,
			Date:                 formatDate(f.Date),
			CategoryID:           f.CategoryID,
			CategoryName:         f.CategoryName,
			CategoryType:         string(f.CategoryType),
			CounterpartAccountID: f.CounterpartAccountID,
		})
	}
	return out
}

type repeatResponse struct {
	Frequency string `json:"frequency"`
	Interval  int    `json:"interval"`
	Infinite  bool   `json:"infinite"`
	EndAfter  int    `json:"end_after,omitempty"`
	Count     int    `json:"count"`
}

type obligationResponse struct {
	ID   int64  `json:"id"`
	Kind string `json:"kind"`
	amount
	Description          string          `json:"description,omitempty"`
	CreatedDate          string          `json:"created_date"`
	NextDate             string          `json:"next_date"`
	AccountID            int64           `json:"account_id,omitempty"`
	CategoryID           int64           `json:"category_id,omitempty"`
	OriginAccountID      int64           `json:"origin_account_id,omitempty"`
	DestinationAccountID int64           `json:"destination_account_id,omitempty"`
	Repeat               *repeatResponse `json:"repeat,omitempty"`
	Version              int64           `json:"version"`
}

func newObligationResponse(o core.Obligation) obligationResponse {
	resp := obligationResponse{
		ID:          o.ID,
		Kind:        string(o.Kind()),
		amount:      amountOf(o.Value),
		Description: o.Description,
		CreatedDate: formatDate(o.CreatedDate),
		NextDate:    formatDate(o.NextDate),
		Version:     o.Version,
	}
	switch p := o.Payload.(type) {
	case core.TransactionPayload:
		resp.AccountID, resp.CategoryID = p.AccountID, p.CategoryID
	case core.TransferPayload:
		resp.OriginAccountID, resp.DestinationAccountID = p.OriginAccountID, p.DestinationAccountID
	}
	if r := o.Repeat; r != nil {
		resp.Repeat = &repeatResponse{
			Frequency: string(r.Frequency),
			Interval:  r.Interval,
			Infinite:  r.Infinite,
			EndAfter:  r.EndAfter,
			Count:     r.Count,
		}
	}
	return resp
}

func newObligationsResponse(list []core.Obligation) []obligationResponse {
	out := make([]obligationResponse, 0, len(list))
	for _, o := range list {
		out = append(out, newObligationResponse(o))
	}
	return out
}

type payResponse struct {
	Entry      entryResponse      `json:"entry"`
	Obligation obligationResponse `json:"obligation"`
	Retired    bool               `json:"retired"`
}

func newPayResponse(res services.PayResult) payResponse {
	return payResponse{
		Entry:      newEntryResponse(res.Entry),
		Obligation: newObligationResponse(res.Obligation),
		Retired:    res.Retired,
	}
}
