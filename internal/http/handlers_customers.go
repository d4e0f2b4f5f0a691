package http

import (
	"net/http"

	"milkledger/internal/core"
)

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.svc.Customers(queryBool(r, "all"))).Write(w)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Customer(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().JSON(c).Write(w)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.customerFields(w, r)
	if !ok {
		return
	}
	c, err := s.svc.CreateCustomer(r.Context(), fields)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusCreated).
		Header("Location", "/api/customers/"+c.ID).
		JSON(c).
		Write(w)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	fields, ok := s.customerFields(w, r)
	if !ok {
		return
	}
	c, err := s.svc.UpdateCustomer(r.Context(), r.PathValue("id"), fields)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().JSON(c).Write(w)
}

// handleDeleteCustomer removes the customer and every delivery it had.
func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteCustomer(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) customerFields(w http.ResponseWriter, r *http.Request) (core.CustomerFields, bool) {
	parser := NewRequestBodyParser(w, r)
	if err := parser.Parse(); err != nil {
		writeBadBody(w, err)
		return core.CustomerFields{}, false
	}
	return parser.CustomerFields(), true
}
