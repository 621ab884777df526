package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"khata/internal/core"
	"khata/internal/export"
	"khata/internal/importer"
	"khata/internal/reconcile"
	"khata/internal/report"
)

func (s *Server) registerReportRoutes(r *mux.Router) {
	r.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/months", s.handleMonths).Methods(http.MethodGet)
	r.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)
	r.HandleFunc("/import/template", s.handleImportTemplate).Methods(http.MethodGet)
}

type summaryResponse struct {
	Filter  report.Filter      `json:"filter"`
	Summary core.Summary       `json:"summary"`
	Entries []core.LedgerEntry `json:"entries,omitempty"`
}

// handleSummary reports an account through the query filter. With
// view=cumulative and a month it reports January through that month.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := ParseFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	account := accountParam(q)

	switch q.Get("view") {
	case "", "monthly":
	case "cumulative":
		if f.Type != report.FilterMonth {
			writeError(w, r, invalidInput("the cumulative view needs a month"))
			return
		}
		sum, err := s.ledger.CumulativeSummary(account, f.Month)
		if err != nil {
			writeError(w, r, err)
			return
		}
		NewResponse().Data(summaryResponse{Filter: f, Summary: sum}).Write(w)
		return
	default:
		writeError(w, r, invalidInput("unknown view %q", q.Get("view")))
		return
	}

	view, err := s.ledger.Summary(account, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := summaryResponse{Filter: f, Summary: view.Summary}
	if q.Get("entries") == "true" {
		resp.Entries = view.Entries
	}
	NewResponse().Data(resp).Write(w)
}

func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYear(r.URL.Query(), s.now().In(core.Location()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := s.ledger.Months(accountParam(r.URL.Query()), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Data(map[string]any{"year": year, "months": rows}).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
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
	if len(view.Entries) == 0 {
		writeError(w, r, notFound("no entries to export"))
		return
	}
	book, err := export.Excel(view.Entries, view.Summary, export.FilterInfo(f))
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := export.ReportFilename(core.DateOf(s.now().In(core.Location())))
	NewResponse().Attachment(name, contentTypeXLSX, book).Write(w)
}

func (s *Server) goodInCartReport(r *http.Request) (*reconcile.Report, error) {
	checkpoint := strings.TrimSpace(r.URL.Query().Get("checkpoint"))
	if checkpoint == "" {
		return nil, invalidInput("checkpoint is required")
	}
	rep, err := s.ledger.GoodInCartReport(accountParam(r.URL.Query()), checkpoint)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, notFound("account has no Good in Cart checkpoints")
	}
	return rep, nil
}

func (s *Server) handleGoodInCartReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.goodInCartReport(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Data(rep).Write(w)
}

func (s *Server) handleExportGoodInCart(w http.ResponseWriter, r *http.Request) {
	rep, err := s.goodInCartReport(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	acc, err := s.ledger.Account(accountParam(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	book, err := export.GoodInCartExcel(rep, acc.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewResponse().Attachment(export.ReportFilename(rep.EndDate), contentTypeXLSX, book).Write(w)
}

// handleImport appends the valid rows of an uploaded spreadsheet (form
// field "file") to an account. A file with no usable rows is answered 422
// with the per-row messages.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		writeError(w, r, badRequest("invalid upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, badRequest("missing file field"))
		return
	}
	defer file.Close()

	account := accountParam(r.URL.Query())
	if account == "" {
		account = sanitizeInput(r.FormValue("account"))
	}
	res, err := s.ledger.Import(r.Context(), s.importer, file, header.Filename, account)
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			err = badRequest("could not read %s: %v", header.Filename, err)
		}
		writeError(w, r, err)
		return
	}
	if !res.Success {
		msg := importer.MsgNoValidData
		if len(res.Errors) > 0 {
			msg = res.Errors[0]
		}
		NewResponse().Status(http.StatusUnprocessableEntity).Fail(msg, res).Write(w)
		return
	}
	res.Entries = nil
	NewResponse().Data(res).Write(w)
}

func (s *Server) handleImportTemplate(w http.ResponseWriter, _ *http.Request) {
	book, err := importer.Template()
	if err != nil {
		InternalServerError("failed to build template").Write(w)
		return
	}
	NewResponse().Attachment(importer.TemplateFilename, contentTypeXLSX, book).Write(w)
}
