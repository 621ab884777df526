package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"khata/internal/store"
)

func (s *Server) registerEntryRoutes(r *mux.Router) {
	r.HandleFunc("/entries", s.handleListEntries).Methods(http.MethodGet)
	r.HandleFunc("/entries", s.handleCreateEntry).Methods(http.MethodPost)
	r.HandleFunc("/entries/{id}", s.handleUpdateEntry).Methods(http.MethodPut)
	r.HandleFunc("/entries/{id}", s.handleDeleteEntry).Methods(http.MethodDelete)
}

func (s *Server) registerGoodInCartRoutes(r *mux.Router) {
	r.HandleFunc("/gic", s.handleListGoodInCart).Methods(http.MethodGet)
	r.HandleFunc("/gic", s.handleCreateGoodInCart).Methods(http.MethodPost)
	r.HandleFunc("/gic/report", s.handleGoodInCartReport).Methods(http.MethodGet)
	r.HandleFunc("/gic/report/export", s.handleExportGoodInCart).Methods(http.MethodGet)
	r.HandleFunc("/gic/{id}", s.handleUpdateGoodInCart).Methods(http.MethodPut)
	r.HandleFunc("/gic/{id}", s.handleDeleteGoodInCart).Methods(http.MethodDelete)
}

// handleListEntries returns the filtered entries of an account, sorted by
// date. Range and month filters keep the first entry of each day.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.ledger.Summary(accountParam(r.URL.Query()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Data(view.Entries).Write(w)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	s.saveEntry(w, r, "", http.StatusCreated)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	s.saveEntry(w, r, mux.Vars(r)["id"], http.StatusOK)
}

func (s *Server) saveEntry(w http.ResponseWriter, r *http.Request, id string, status int) {
	var req entryRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := req.entry(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.ledger.SaveEntry(e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(status).Data(saved).Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledger.Dispatch(store.DeleteEntry{ID: mux.Vars(r)["id"]}); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListGoodInCart(w http.ResponseWriter, r *http.Request) {
	entries, err := s.ledger.GoodInCart(accountParam(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Data(entries).Write(w)
}

func (s *Server) handleCreateGoodInCart(w http.ResponseWriter, r *http.Request) {
	s.saveGoodInCart(w, r, "", http.StatusCreated)
}

func (s *Server) handleUpdateGoodInCart(w http.ResponseWriter, r *http.Request) {
	s.saveGoodInCart(w, r, mux.Vars(r)["id"], http.StatusOK)
}

func (s *Server) saveGoodInCart(w http.ResponseWriter, r *http.Request, id string, status int) {
	var req goodInCartRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := req.entry(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.ledger.SaveGoodInCart(g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(status).Data(saved).Write(w)
}

func (s *Server) handleDeleteGoodInCart(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledger.Dispatch(store.DeleteGoodInCart{ID: mux.Vars(r)["id"]}); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}
