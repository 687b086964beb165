package web

import (
	"net/http"
	"strings"

	"github.com/vbonduro/stockcount/internal/api"
	"github.com/vbonduro/stockcount/internal/domain"
)

func (s *Server) handleLookupBatch(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		badRequest(w, "code is required")
		return
	}
	batch, err := s.service.LookupBatch(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.NewBatch(batch))
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req api.CreateBatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	structure, err := req.Packaging.Structure()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	batch, err := s.service.AddBatch(r.Context(), &domain.Batch{
		BatchNumber:       req.BatchNumber,
		ProductName:       req.ProductName,
		Location:          req.Location,
		OriginalQuantity:  req.OriginalQuantity,
		AvailableQuantity: req.AvailableQuantity,
		AllocatedQuantity: req.AllocatedQuantity,
		Lot:               req.Lot,
		ExpiryDate:        req.ExpiryDate,
		Packaging:         structure,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.NewBatch(batch))
}
