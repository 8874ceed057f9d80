package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clienthub/clienthub/internal/store"
)

var allowedClientStatuses = map[string]struct{}{
	"active":   {},
	"inactive": {},
	"archived": {},
}

// ClientHandler manages client endpoints.
type ClientHandler struct {
	Clients *store.ClientStore
}

type ClientRequest struct {
	Name    string          `json:"name"`
	Company *string         `json:"company,omitempty"`
	Email   *string         `json:"email,omitempty"`
	Phone   *string         `json:"phone,omitempty"`
	Status  string          `json:"status,omitempty"`
	Tags    json.RawMessage `json:"tags,omitempty"`
	Notes   *string         `json:"notes,omitempty"`
}

type ClientsResponse struct {
	Clients []store.Client `json:"clients"`
}

// List handles GET /api/clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(strings.ToLower(r.URL.Query().Get("status")))
	if status != "" {
		if _, ok := allowedClientStatuses[status]; !ok {
			sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
			return
		}
	}

	clients, err := h.Clients.List(r.Context(), store.ClientFilter{Status: status})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, ClientsResponse{Clients: clients})
}

// Get handles GET /api/clients/:id
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := clientIDParam(w, r)
	if !ok {
		return
	}

	client, err := h.Clients.GetByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, client)
}

// Create handles POST /api/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeClientRequest(w, r)
	if !ok {
		return
	}

	client, err := h.Clients.Create(r.Context(), store.CreateClientInput{
		Name:    input.Name,
		Company: input.Company,
		Email:   input.Email,
		Phone:   input.Phone,
		Status:  input.Status,
		Tags:    input.Tags,
		Notes:   input.Notes,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusCreated, client)
}

// Update handles PUT /api/clients/:id
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := clientIDParam(w, r)
	if !ok {
		return
	}

	input, ok := decodeClientRequest(w, r)
	if !ok {
		return
	}

	client, err := h.Clients.Update(r.Context(), id, store.UpdateClientInput{
		Name:    input.Name,
		Company: input.Company,
		Email:   input.Email,
		Phone:   input.Phone,
		Status:  input.Status,
		Tags:    input.Tags,
		Notes:   input.Notes,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, client)
}

// Delete handles DELETE /api/clients/:id
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := clientIDParam(w, r)
	if !ok {
		return
	}

	if err := h.Clients.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func clientIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if !uuidRegex.MatchString(id) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid client id"})
		return "", false
	}
	return id, true
}

func decodeClientRequest(w http.ResponseWriter, r *http.Request) (ClientRequest, bool) {
	var req ClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return req, false
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "missing name"})
		return req, false
	}

	req.Status = strings.TrimSpace(strings.ToLower(req.Status))
	if req.Status == "" {
		req.Status = "active"
	}
	if _, ok := allowedClientStatuses[req.Status]; !ok {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
		return req, false
	}

	if len(req.Tags) > 0 && !json.Valid(req.Tags) {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid tags"})
		return req, false
	}

	return req, true
}
