package http

import (
	"net/http"
	"strings"

	"insaat/internal/core"
)

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := s.ledger.Payments(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var p core.Payment
	if err := decodeJSON(r, &p); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	created, err := s.ledger.CreatePayment(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.Payment(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var p core.Payment
	if err := decodeJSON(r, &p); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	p.ID = r.PathValue("id")
	updated, err := s.ledger.UpdatePayment(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeletePayment(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.ledger.Projects(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p core.Project
	if err := decodeJSON(r, &p); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	created, err := s.ledger.CreateProject(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.Project(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var p core.Project
	if err := decodeJSON(r, &p); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	p.ID = r.PathValue("id")
	updated, err := s.ledger.UpdateProject(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRecipients(w http.ResponseWriter, r *http.Request) {
	recipients, err := s.ledger.Recipients(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipients)
}

func (s *Server) handleCreateRecipient(w http.ResponseWriter, r *http.Request) {
	var rec core.Recipient
	if err := decodeJSON(r, &rec); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	created, err := s.ledger.CreateRecipient(r.Context(), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetRecipient(w http.ResponseWriter, r *http.Request) {
	rec, err := s.ledger.Recipient(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateRecipient(w http.ResponseWriter, r *http.Request) {
	var rec core.Recipient
	if err := decodeJSON(r, &rec); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	rec.ID = r.PathValue("id")
	updated, err := s.ledger.UpdateRecipient(r.Context(), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRecipient(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteRecipient(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.ledger.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := decodeJSON(r, &c); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	created, err := s.ledger.CreateCategory(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := decodeJSON(r, &c); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	c.ID = r.PathValue("id")
	updated, err := s.ledger.UpdateCategory(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMaterialCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.ledger.MaterialCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateMaterialCategory(w http.ResponseWriter, r *http.Request) {
	var c core.MaterialCategory
	if err := decodeJSON(r, &c); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	created, err := s.ledger.CreateMaterialCategory(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateMaterialCategory(w http.ResponseWriter, r *http.Request) {
	var c core.MaterialCategory
	if err := decodeJSON(r, &c); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	c.ID = r.PathValue("id")
	updated, err := s.ledger.UpdateMaterialCategory(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMaterialCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteMaterialCategory(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("search"))
	materials, err := s.ledger.Materials(r.Context(), search)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, materials)
}

func (s *Server) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var m core.Material
	if err := decodeJSON(r, &m); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	created, err := s.ledger.CreateMaterial(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetMaterial(w http.ResponseWriter, r *http.Request) {
	m, err := s.ledger.Material(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	var m core.Material
	if err := decodeJSON(r, &m); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	m.ID = r.PathValue("id")
	updated, err := s.ledger.UpdateMaterial(r.Context(), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteMaterial(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListContracts(w http.ResponseWriter, r *http.Request) {
	var contracts []core.Contract
	var err error
	if recipientID := strings.TrimSpace(r.URL.Query().Get("recipient")); recipientID != "" {
		contracts, err = s.ledger.ContractsByRecipient(r.Context(), recipientID)
	} else {
		contracts, err = s.ledger.Contracts(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts)
}

func (s *Server) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	var c core.Contract
	if err := decodeJSON(r, &c); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	created, err := s.ledger.CreateContract(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	c, err := s.ledger.Contract(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateContract(w http.ResponseWriter, r *http.Request) {
	var c core.Contract
	if err := decodeJSON(r, &c); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	c.ID = r.PathValue("id")
	updated, err := s.ledger.UpdateContract(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteContract(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteContract(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
