package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"khata/internal/core"
	"khata/internal/store"
)

type accountsResponse struct {
	Accounts         []core.Account `json:"accounts"`
	CurrentAccountID string         `json:"currentAccountId"`
}

func (s *Server) registerAccountRoutes(r *mux.Router) {
	r.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	r.HandleFunc("/accounts", s.handleCreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id}", s.handleRenameAccount).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/accounts/{id}", s.handleDeleteAccount).Methods(http.MethodDelete)
	r.HandleFunc("/accounts/{id}/switch", s.handleSwitchAccount).Methods(http.MethodPost)
}

func accountsOf(data core.AppData) accountsResponse {
	return accountsResponse{Accounts: data.Accounts, CurrentAccountID: data.CurrentAccountID}
}

func (s *Server) handleListAccounts(w http.ResponseWriter, _ *http.Request) {
	NewResponse().Data(accountsOf(s.ledger.State())).Write(w)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	acc, err := s.ledger.CreateAccount(sanitizeInput(req.Name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).Data(acc).Write(w)
}

func (s *Server) handleRenameAccount(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	id := mux.Vars(r)["id"]
	data, err := s.ledger.Dispatch(store.RenameAccount{ID: id, Name: sanitizeInput(req.Name)})
	if err != nil {
		writeError(w, r, err)
		return
	}
	acc, _ := data.Account(id)
	NewResponse().Data(acc).Write(w)
}

func (s *Server) handleSwitchAccount(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.Dispatch(store.SwitchAccount{ID: mux.Vars(r)["id"]})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Data(accountsOf(data)).Write(w)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.Dispatch(store.DeleteAccount{ID: mux.Vars(r)["id"]})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Data(accountsOf(data)).Write(w)
}
