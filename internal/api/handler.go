// Package api provides HTTP access to assembly lookups and enrichment.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"contigalias/internal/core"
)

// AssemblyService is the service surface the handler depends on.
type AssemblyService interface {
	GetAssembly(accession string) (core.Assembly, bool)
	ListAssemblies() []core.Assembly
	UpsertAssembly(ctx context.Context, assembly core.Assembly) (core.Assembly, core.Result, error)
	DeleteAssembly(ctx context.Context, accession string) (core.Result, error)
	GetAssemblyByChromosomeGenbank(chrAccession string) (core.Assembly, bool)
	GetAssemblyByChromosomeRefseq(chrAccession string) (core.Assembly, bool)
	EnrichAssembly(ctx context.Context, accession string) (core.Assembly, bool, error)
}

// Handler routes assembly and chromosome endpoints.
type Handler struct {
	Service AssemblyService
}

// NewHandler constructs an assembly HTTP handler.
func NewHandler(service AssemblyService) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "assembly service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case r.Method == http.MethodGet && path == "/api/v1/assemblies":
		writeJSON(w, http.StatusOK, map[string]any{"assemblies": h.Service.ListAssemblies()})
	case strings.HasPrefix(path, "/api/v1/assemblies/"):
		h.handleAssembly(w, r, strings.TrimPrefix(path, "/api/v1/assemblies/"))
	case strings.HasPrefix(path, "/api/v1/chromosomes/genbank/"):
		h.handleChromosome(w, r, strings.TrimPrefix(path, "/api/v1/chromosomes/genbank/"), h.Service.GetAssemblyByChromosomeGenbank)
	case strings.HasPrefix(path, "/api/v1/chromosomes/refseq/"):
		h.handleChromosome(w, r, strings.TrimPrefix(path, "/api/v1/chromosomes/refseq/"), h.Service.GetAssemblyByChromosomeRefseq)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleAssembly(w http.ResponseWriter, r *http.Request, remainder string) {
	segments := strings.Split(remainder, "/")
	accession := segments[0]
	if accession == "" {
		writeError(w, http.StatusNotFound, "assembly not found")
		return
	}

	if len(segments) == 2 && segments[1] == "enrich" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		enriched, ok, err := h.Service.EnrichAssembly(r.Context(), accession)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "assembly not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"assembly": enriched})
		return
	}

	if len(segments) != 1 {
		writeError(w, http.StatusNotFound, "assembly endpoint not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		assembly, ok := h.Service.GetAssembly(accession)
		if !ok {
			writeError(w, http.StatusNotFound, "assembly not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"assembly": assembly})
	case http.MethodPut:
		var assembly core.Assembly
		if err := json.NewDecoder(r.Body).Decode(&assembly); err != nil {
			writeError(w, http.StatusBadRequest, "invalid assembly payload")
			return
		}
		assembly.InsdcAccession = accession
		stored, _, err := h.Service.UpsertAssembly(r.Context(), assembly)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"assembly": stored})
	case http.MethodDelete:
		if _, err := h.Service.DeleteAssembly(r.Context(), accession); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleChromosome(w http.ResponseWriter, r *http.Request, accession string, lookup func(string) (core.Assembly, bool)) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if accession == "" || strings.Contains(accession, "/") {
		writeError(w, http.StatusNotFound, "chromosome not found")
		return
	}
	assembly, ok := lookup(accession)
	if !ok {
		writeError(w, http.StatusNotFound, "chromosome not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assembly": assembly})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
