package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"painel/internal/core"
)

// entryRequest is an entry plus the number of monthly installments to
// expand it into. Zero means a single entry.
type entryRequest struct {
	core.Entry
	Installments int `json:"installments"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(sess.Snapshot().Entries))
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Entry.ID = ""
	created, err := s.deps.Ledger.CreateEntry(r.Context(), userID(r), req.Entry, req.Installments)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var e core.Entry
	if err := decodeJSON(w, r, &e); err != nil {
		writeError(w, r, err)
		return
	}
	e.ID = chi.URLParam(r, "id")
	updated, err := s.deps.Ledger.UpdateEntry(r.Context(), userID(r), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleToggleEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.deps.Ledger.ToggleEntryStatus(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.DeleteEntry(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(sess.Snapshot().Categories))
}

// handleSaveCategory creates on POST and updates the {id} of a PUT.
func (s *Server) handleSaveCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = chi.URLParam(r, "id")
	saved, err := s.deps.Ledger.SaveCategory(r.Context(), userID(r), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, savedStatus(c.ID), saved)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.DeleteCategory(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSubcategories(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap := sess.Snapshot()
	if categoryID := sanitizeInput(r.URL.Query().Get("category")); categoryID != "" {
		writeJSON(w, http.StatusOK, nonNil(snap.SubcategoriesOf(categoryID)))
		return
	}
	writeJSON(w, http.StatusOK, nonNil(snap.Subcategories))
}

func (s *Server) handleSaveSubcategory(w http.ResponseWriter, r *http.Request) {
	var sc core.Subcategory
	if err := decodeJSON(w, r, &sc); err != nil {
		writeError(w, r, err)
		return
	}
	sc.ID = chi.URLParam(r, "id")
	saved, err := s.deps.Ledger.SaveSubcategory(r.Context(), userID(r), sc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, savedStatus(sc.ID), saved)
}

func (s *Server) handleDeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.DeleteSubcategory(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(sess.Snapshot().Accounts))
}

func (s *Server) handleSaveAccount(w http.ResponseWriter, r *http.Request) {
	var a core.Account
	if err := decodeJSON(w, r, &a); err != nil {
		writeError(w, r, err)
		return
	}
	a.ID = chi.URLParam(r, "id")
	saved, err := s.deps.Ledger.SaveAccount(r.Context(), userID(r), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, savedStatus(a.ID), saved)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.DeleteAccount(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func savedStatus(pathID string) int {
	if pathID == "" {
		return http.StatusCreated
	}
	return http.StatusOK
}

// nonNil keeps empty collections encoding as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
