package http

import (
	"net/http"
	"strings"

	"finance/internal/core"
	applog "finance/internal/log"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.balances.Accounts(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, newAccountResponse(a.Account).withBalance(a.Balance))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	a, err := s.ledger.CreateAccount(r.Context(), userID(r), sanitizeInput(req.Name), sanitizeInput(req.Description))
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAccountResponse(a).withBalance(core.Money{}))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	a, err := s.ledger.GetAccount(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	balance, err := s.balances.AccountBalance(r.Context(), id, userID(r))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(a).withBalance(balance))
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	balance, err := s.balances.AccountBalance(r.Context(), id, userID(r))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: id, amount: amountOf(balance)})
}

func (s *Server) handleAccountFeed(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	feed, err := s.balances.Feed(r.Context(), id, userID(r))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, newFeedResponse(feed))
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	tx, err := req.transaction(id)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	created, err := s.ledger.RecordTransaction(r.Context(), userID(r), tx)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTransactionResponse(created))
}

func (s *Server) handleRecordTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	tr, err := req.transfer()
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	created, err := s.ledger.RecordTransfer(r.Context(), userID(r), tr)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTransferResponse(created))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	typ := core.CategoryType(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))))
	cats, err := s.ledger.ListCategories(r.Context(), userID(r), typ)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, newCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	c, err := s.ledger.CreateCategory(r.Context(), userID(r), sanitizeInput(req.Name), core.CategoryType(req.Type))
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCategoryResponse(c))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	tx, err := s.ledger.GetTransaction(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req transactionPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	tx, err := s.ledger.UpdateTransaction(r.Context(), userID(r), id, patch)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	tx, err := s.ledger.DeleteTransaction(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(tx))
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	tr, err := s.ledger.GetTransfer(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransferResponse(tr))
}

func (s *Server) handleUpdateTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req transferPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	tr, err := s.ledger.UpdateTransfer(r.Context(), userID(r), id, patch)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransferResponse(tr))
}

func (s *Server) handleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	tr, err := s.ledger.DeleteTransfer(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransferResponse(tr))
}
