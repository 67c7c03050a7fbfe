package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/coverline/claimlens/internal/core/domain"
	"github.com/coverline/claimlens/internal/core/ports"
)

func (rt *Router) createClaim(w http.ResponseWriter, r *http.Request) {
	var input ports.NewClaimInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	claim, err := rt.intake.CreateClaim(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.RecordClaimCreated()
	writeJSON(w, http.StatusCreated, claim)
}

func (rt *Router) getClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := rt.intake.GetClaim(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.MaxUploadBytes > 0 {
		// Leave headroom for multipart framing; the use case enforces the
		// per-file limit exactly.
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+1<<20)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	docType, err := domain.ParseDocType(r.FormValue("doc_type"))
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := rt.intake.AttachDocument(
		r.Context(),
		r.PathValue("id"),
		docType,
		fileHeader.Filename,
		fileHeader.Size,
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.RecordDocumentUploaded(string(doc.DocType))
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) requestAnalysis(w http.ResponseWriter, r *http.Request) {
	claim, err := rt.intake.RequestAnalysis(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.RecordAnalysisRequested()
	writeJSON(w, http.StatusAccepted, map[string]string{
		"claim_id": claim.ID,
		"status":   string(claim.Status),
	})
}

func (rt *Router) getAssessment(w http.ResponseWriter, r *http.Request) {
	record, err := rt.intake.GetAssessment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
