package http

import (
	"net/http"

	applog "finance/internal/log"
	"finance/internal/services"
)

func (s *Server) handleListScheduled(w http.ResponseWriter, r *http.Request) {
	list, err := s.obligations.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, newObligationsResponse(list))
}

func (s *Server) handleCreateScheduled(w http.ResponseWriter, r *http.Request) {
	var req obligationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	var in services.ObligationInput
	if err := req.apply(&in); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	o, err := s.obligations.Create(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, newObligationResponse(o))
}

func (s *Server) handleGetScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	o, err := s.obligations.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, newObligationResponse(o))
}

// handleEditScheduled merges the body onto the stored obligation, so only
// the fields present change.
func (s *Server) handleEditScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req obligationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	cur, err := s.obligations.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	in := inputFromObligation(cur)
	if err := req.apply(&in); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	o, err := s.obligations.Edit(r.Context(), userID(r), id, in)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, newObligationResponse(o))
}

func (s *Server) handleDeleteScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	o, err := s.obligations.Delete(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, newObligationResponse(o))
}

// handlePayScheduled accepts an empty body to pay with the stored values.
func (s *Server) handlePayScheduled(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, applog.OpPay, err)
		return
	}
	var req paymentRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpPay, err)
		return
	}

	var in services.PaymentInput
	if req.overridesPayload() {
		cur, err := s.obligations.Get(r.Context(), userID(r), id)
		if err != nil {
			writeError(w, r, applog.OpPay, err)
			return
		}
		in, err = req.input(cur.Payload)
		if err != nil {
			writeError(w, r, applog.OpPay, err)
			return
		}
	} else if in, err = req.input(nil); err != nil {
		writeError(w, r, applog.OpPay, err)
		return
	}

	res, err := s.obligations.Pay(r.Context(), userID(r), id, in)
	if err != nil {
		writeError(w, r, applog.OpPay, err)
		return
	}
	writeJSON(w, http.StatusOK, newPayResponse(res))
}
