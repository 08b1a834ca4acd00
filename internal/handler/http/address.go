package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/httputil"
)

// AddressHandler serves the address book actions. Every action acts on the
// session user's addresses only.
type AddressHandler struct {
	addresses Addresses
	logger    *slog.Logger
}

// NewAddressHandler creates a new address HTTP handler.
func NewAddressHandler(addresses Addresses, logger *slog.Logger) *AddressHandler {
	return &AddressHandler{addresses: addresses, logger: orDefault(logger)}
}

// List handles GET /api/addresses
func (h *AddressHandler) List(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.addresses.List(r.Context(), currentUserID(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, addresses)
}

// Add handles POST /actions/addresses/add
func (h *AddressHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	_, err := h.addresses.Add(r.Context(), currentUserID(r), addressFieldsFromForm(r), formBool(r, "isDefault"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, nil)
}

// Update handles POST /actions/addresses/update
func (h *AddressHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	addressID, ok := httputil.ParseID(w, "addressId", r.PostFormValue("addressId"))
	if !ok {
		return
	}

	_, err := h.addresses.Update(r.Context(), currentUserID(r), addressID, addressFieldsFromForm(r), formBool(r, "isDefault"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, nil)
}

// Delete handles POST /actions/addresses/delete
func (h *AddressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	addressID, ok := httputil.ParseID(w, "addressId", r.PostFormValue("addressId"))
	if !ok {
		return
	}

	if err := h.addresses.Delete(r.Context(), currentUserID(r), addressID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, nil)
}

// SetDefault handles POST /actions/addresses/default
func (h *AddressHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}
	addressID, ok := httputil.ParseID(w, "addressId", r.PostFormValue("addressId"))
	if !ok {
		return
	}

	if _, err := h.addresses.SetDefault(r.Context(), currentUserID(r), addressID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteSuccess(w, nil)
}
