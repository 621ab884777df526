package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"khata/internal/backup"
)

func (s *Server) registerBackupRoutes(r *mux.Router) {
	r.HandleFunc("/backups", s.handleListBackups).Methods(http.MethodGet)
	r.HandleFunc("/backups", s.handleCreateBackup).Methods(http.MethodPost)
	r.HandleFunc("/backups/stats", s.handleBackupStats).Methods(http.MethodGet)
	r.HandleFunc("/backups/import", s.handleImportBackup).Methods(http.MethodPost)
	r.HandleFunc("/backups/{id}", s.handleDeleteBackup).Methods(http.MethodDelete)
	r.HandleFunc("/backups/{id}/export", s.handleExportBackup).Methods(http.MethodGet)
	r.HandleFunc("/backups/{id}/restore", s.handleRestoreBackup).Methods(http.MethodPost)

	r.HandleFunc("/document", s.handleExportDocument).Methods(http.MethodGet)
	r.HandleFunc("/document", s.handleImportDocument).Methods(http.MethodPut, http.MethodPost)
}

// handleListBackups returns backup metadata only, newest last.
func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.ledger.Backups().List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	meta := make([]backup.Metadata, 0, len(backups))
	for _, b := range backups {
		meta = append(meta, b.Metadata)
	}
	NewResponse().Data(meta).Write(w)
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	var req descriptionRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := s.ledger.CreateBackup(r.Context(), sanitizeInput(req.Description))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).Data(b.Metadata).Write(w)
}

func (s *Server) handleBackupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ledger.Backups().Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Data(stats).Write(w)
}

func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	b, err := s.ledger.Backups().Import(r.Context(), http.MaxBytesReader(w, r.Body, maxUploadBody))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).Data(b.Metadata).Write(w)
}

func (s *Server) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Backups().Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	raw, name, err := s.ledger.Backups().Export(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Attachment(name, "application/json", raw).Write(w)
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.RestoreBackup(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Data(accountsOf(data)).Write(w)
}

func (s *Server) handleExportDocument(w http.ResponseWriter, r *http.Request) {
	raw, err := s.ledger.ExportDocument()
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Attachment(backup.Filename(s.now()), "application/json", raw).Write(w)
}

func (s *Server) handleImportDocument(w http.ResponseWriter, r *http.Request) {
	data, err := s.ledger.ImportDocument(http.MaxBytesReader(w, r.Body, maxUploadBody))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Data(map[string]any{
		"accounts":          accountsOf(data),
		"ledgerEntries":     len(data.LedgerEntries),
		"goodInCartEntries": len(data.GoodInCartEntries),
	}).Write(w)
}
