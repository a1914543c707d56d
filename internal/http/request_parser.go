package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"finance/internal/core"
	"finance/internal/services"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 64 << 10
)

// decodeJSON reads a single JSON object into v, rejecting unknown fields.
// Every failure is a BadRequest.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decode(w, r, v, false)
}

// decodeOptionalJSON is decodeJSON that leaves v untouched on an empty body.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return decode(w, r, v, true)
}

func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return fmt.Errorf("%w: request body is empty", core.ErrBadRequest)
		}
		return fmt.Errorf("%w: malformed JSON: %v", core.ErrBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must hold a single JSON object", core.ErrBadRequest)
	}
	return nil
}

// pathID parses a positive id from the named route parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", core.ErrBadRequest, name, raw)
	}
	return id, nil
}

// parseDate parses YYYY-MM-DD as UTC midnight. Empty input is the zero time.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", core.ErrBadRequest, field)
	}
	return t, nil
}

func parseAmount(s string) (core.Money, error) {
	m, err := core.ParseMoney(s)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %w", core.ErrBadRequest, err)
	}
	return m, nil
}

// sanitizeInput drops control characters other than tab and newlines and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// obligationRequest is the body of create and patch calls. Nil fields keep
// the value they are applied to.
type obligationRequest struct {
	Amount               *string `json:"amount"`
	Description          *string `json:"description"`
	CreatedDate          *string `json:"created_date"`
	Kind                 *string `json:"kind"`
	AccountID            *int64  `json:"account_id"`
	CategoryID           *int64  `json:"category_id"`
	OriginAccountID      *int64  `json:"origin_account_id"`
	DestinationAccountID *int64  `json:"destination_account_id"`
	Repeat               *bool   `json:"repeat"`
	Frequency            *string `json:"frequency"`
	Interval             *int    `json:"interval"`
	Infinite             *bool   `json:"infinite"`
	EndAfter             *int    `json:"end_after"`
}

// inputFromObligation is the starting point of a patch.
func inputFromObligation(o core.Obligation) services.ObligationInput {
	in := services.ObligationInput{
		Value:       o.Value,
		Description: o.Description,
		CreatedDate: o.CreatedDate,
		Payload:     o.Payload,
	}
	if o.Repeat != nil {
		in.Repeat = true
		in.Frequency = o.Repeat.Frequency
		in.Interval = o.Repeat.Interval
		in.Infinite = o.Repeat.Infinite
		in.EndAfter = o.Repeat.EndAfter
	}
	return in
}

// apply overlays the request onto in.
func (req obligationRequest) apply(in *services.ObligationInput) error {
	if req.Amount != nil {
		m, err := parseAmount(*req.Amount)
		if err != nil {
			return err
		}
		in.Value = m
	}
	if req.Description != nil {
		in.Description = sanitizeInput(*req.Description)
	}
	if req.CreatedDate != nil {
		d, err := parseDate("created_date", *req.CreatedDate)
		if err != nil {
			return err
		}
		in.CreatedDate = d
	}

	payload, err := req.payload(in.Payload)
	if err != nil {
		return err
	}
	in.Payload = payload

	if req.Repeat != nil {
		in.Repeat = *req.Repeat
	}
	if req.Frequency != nil {
		in.Frequency = core.Frequency("")
		if *req.Frequency != "" {
			f, err := core.ParseFrequency(strings.ToLower(strings.TrimSpace(*req.Frequency)))
			if err != nil {
				return fmt.Errorf("%w: %w", core.ErrInvalidSchedule, err)
			}
			in.Frequency = f
		}
	}
	if req.Interval != nil {
		in.Interval = *req.Interval
	}
	if req.Infinite != nil {
		in.Infinite = *req.Infinite
	}
	if req.EndAfter != nil {
		in.EndAfter = *req.EndAfter
	}
	return nil
}

// payload builds the payload from the request, starting from cur. The kind
// is taken from the request, then from the ids present, then from cur.
func (req obligationRequest) payload(cur core.Payload) (core.Payload, error) {
	kind := core.Kind("")
	switch {
	case req.Kind != nil:
		kind = core.Kind(strings.ToLower(strings.TrimSpace(*req.Kind)))
	case req.OriginAccountID != nil || req.DestinationAccountID != nil:
		kind = core.KindTransfer
	case req.AccountID != nil || req.CategoryID != nil:
		kind = core.KindTransaction
	case cur != nil:
		kind = cur.Kind()
	default:
		return nil, nil
	}

	switch kind {
	case core.KindTransaction:
		p, _ := cur.(core.TransactionPayload)
		setID(&p.AccountID, req.AccountID)
		setID(&p.CategoryID, req.CategoryID)
		return p, nil
	case core.KindTransfer:
		p, _ := cur.(core.TransferPayload)
		setID(&p.OriginAccountID, req.OriginAccountID)
		setID(&p.DestinationAccountID, req.DestinationAccountID)
		return p, nil
	}
	return nil, fmt.Errorf("%w: kind must be %q or %q", core.ErrBadRequest, core.KindTransaction, core.KindTransfer)
}

func setID(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

// paymentRequest overrides parts of an obligation for one pay call.
type paymentRequest struct {
	Amount               *string `json:"amount"`
	Description          *string `json:"description"`
	Date                 string  `json:"date"`
	AccountID            *int64  `json:"account_id"`
	CategoryID           *int64  `json:"category_id"`
	OriginAccountID      *int64  `json:"origin_account_id"`
	DestinationAccountID *int64  `json:"destination_account_id"`
}

func (req paymentRequest) overridesPayload() bool {
	return req.AccountID != nil || req.CategoryID != nil || req.OriginAccountID != nil || req.DestinationAccountID != nil
}

// input converts the request. cur is the stored payload that partial id
// overrides are merged into; it is only consulted when an id is given.
func (req paymentRequest) input(cur core.Payload) (services.PaymentInput, error) {
	var in services.PaymentInput
	if req.Amount != nil {
		m, err := parseAmount(*req.Amount)
		if err != nil {
			return in, err
		}
		in.Value = m
	}
	if req.Description != nil {
		d := sanitizeInput(*req.Description)
		in.Description = &d
	}
	d, err := parseDate("date", req.Date)
	if err != nil {
		return in, err
	}
	in.Date = d

	if req.overridesPayload() {
		ob := obligationRequest{
			AccountID:            req.AccountID,
			CategoryID:           req.CategoryID,
			OriginAccountID:      req.OriginAccountID,
			DestinationAccountID: req.DestinationAccountID,
		}
		base := cur
		transfer := req.OriginAccountID != nil || req.DestinationAccountID != nil
		if cur != nil && (cur.Kind() == core.KindTransfer) != transfer {
			base = nil
		}
		p, err := ob.payload(base)
		if err != nil {
			return in, err
		}
		in.Payload = p
	}
	return in, nil
}

type accountRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type categoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type transactionRequest struct {
	CategoryID  int64  `json:"category_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

func (req transactionRequest) transaction(accountID int64) (core.Transaction, error) {
	value, err := parseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		AccountID:   accountID,
		CategoryID:  req.CategoryID,
		Value:       value,
		Description: sanitizeInput(req.Description),
		Date:        date,
	}, nil
}

type transferRequest struct {
	OriginAccountID      int64  `json:"origin_account_id"`
	DestinationAccountID int64  `json:"destination_account_id"`
	Amount               string `json:"amount"`
	Description          string `json:"description"`
	Date                 string `json:"date"`
}

func (req transferRequest) transfer() (core.Transfer, error) {
	value, err := parseAmount(req.Amount)
	if err != nil {
		return core.Transfer{}, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return core.Transfer{}, err
	}
	return core.Transfer{
		OriginAccountID:      req.OriginAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Value:                value,
		Description:          sanitizeInput(req.Description),
		Date:                 date,
	}, nil
}

// transactionPatchRequest is the body of PATCH /api/transactions/{id}.
type transactionPatchRequest struct {
	AccountID   *int64  `json:"account_id"`
	CategoryID  *int64  `json:"category_id"`
	Amount      *string `json:"amount"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

func (req transactionPatchRequest) patch() (services.TransactionPatch, error) {
	p := services.TransactionPatch{AccountID: req.AccountID, CategoryID: req.CategoryID}
	var err error
	if p.Value, p.Description, p.Date, err = entryPatch(req.Amount, req.Description, req.Date); err != nil {
		return services.TransactionPatch{}, err
	}
	return p, nil
}

// transferPatchRequest is the body of PATCH /api/transfers/{id}.
type transferPatchRequest struct {
	OriginAccountID      *int64  `json:"origin_account_id"`
	DestinationAccountID *int64  `json:"destination_account_id"`
	Amount               *string `json:"amount"`
	Description          *string `json:"description"`
	Date                 *string `json:"date"`
}

func (req transferPatchRequest) patch() (services.TransferPatch, error) {
	p := services.TransferPatch{OriginAccountID: req.OriginAccountID, DestinationAccountID: req.DestinationAccountID}
	var err error
	if p.Value, p.Description, p.Date, err = entryPatch(req.Amount, req.Description, req.Date); err != nil {
		return services.TransferPatch{}, err
	}
	return p, nil
}

// entryPatch parses the fields transactions and transfers share. A present
// date may not be empty.
func entryPatch(amount, description, date *string) (*core.Money, *string, *time.Time, error) {
	var (
		value *core.Money
		desc  *string
		day   *time.Time
	)
	if amount != nil {
		m, err := parseAmount(*amount)
		if err != nil {
			return nil, nil, nil, err
		}
		value = &m
	}
	if description != nil {
		d := sanitizeInput(*description)
		desc = &d
	}
	if date != nil {
		d, err := parseDate("date", *date)
		if err != nil {
			return nil, nil, nil, err
		}
		if d.IsZero() {
			return nil, nil, nil, fmt.Errorf("%w: date must be YYYY-MM-DD", core.ErrBadRequest)
		}
		day = &d
	}
	return value, desc, day, nil
}
