package http

import (
	"io"
	"net/http"

	"milkledger/internal/services"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.svc.Settings()).Write(w)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		writeBadBody(w, err)
		return
	}
	settings, err := s.svc.SaveSettings(r.Context(), parser.Value("defaultMilkPrice"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().JSON(settings).Write(w)
}

func (s *Server) handleStorageInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.StorageInfo(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().JSON(info).Write(w)
}

// handleExport downloads the backup document and records the backup time.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.Export(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().Body("application/json; charset=utf-8", data).
		Attachment(services.BackupFileName(s.svc.LocalNow())).
		Write(w)
}

// handlePrepareImport parses an uploaded backup and answers with a token to
// confirm or cancel. Nothing is replaced yet.
func (s *Server) handlePrepareImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeBadBody(w, err)
		return
	}
	pending, err := s.svc.PrepareImport(r.Context(), data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusAccepted).JSON(pending).Write(w)
}

func (s *Server) handleConfirmImport(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ConfirmImport(r.Context(), r.PathValue("token")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().JSON(map[string]string{"status": "imported"}).Write(w)
}

func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	if !s.svc.CancelImport(r.PathValue("token")) {
		writeServiceError(w, r, services.ErrImportNotFound)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

// handleClearAll empties the ledger and the registry and resets settings.
// It requires ?confirm=yes.
func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "yes" {
		BadRequestError("clearing all data requires confirm=yes").Write(w)
		return
	}
	if err := s.svc.ClearAll(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}
