// Package handler exposes stalls over HTTP under /api/stalls.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Sambhav-gg/StreetBites/internal/platform/httpjson"
	"github.com/Sambhav-gg/StreetBites/internal/platform/rbac"
	"github.com/Sambhav-gg/StreetBites/internal/server/middleware"
	"github.com/Sambhav-gg/StreetBites/internal/stall/domain"
	"github.com/Sambhav-gg/StreetBites/internal/stall/service"
	userdomain "github.com/Sambhav-gg/StreetBites/internal/user/domain"
)

// StallService is the subset of service.StallService used by the handler.
type StallService interface {
	Create(ctx context.Context, actor service.Actor, in service.StallInput) (*domain.Stall, error)
	Update(ctx context.Context, actor service.Actor, id string, in service.StallInput) (*domain.Stall, error)
	UpdateMenu(ctx context.Context, actor service.Actor, id string, items []domain.MenuItem) ([]domain.MenuItem, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
	Get(ctx context.Context, id string) (*domain.Stall, error)
	ListAll(ctx context.Context) ([]*domain.Stall, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Stall, error)
	MyStall(ctx context.Context, ownerID string) (*domain.Stall, error)
	Search(ctx context.Context, dish, city string) ([]*domain.Stall, error)
	TopRated(ctx context.Context) ([]*domain.Stall, error)
	Nearby(ctx context.Context, lat, lng float64) ([]*domain.Stall, error)
	ByCity(ctx context.Context, city string) ([]*domain.Stall, error)
	AddImpression(ctx context.Context, id, viewerID string) error
}

// Handler serves /api/stalls.
type Handler struct {
	stalls StallService
	log    zerolog.Logger
}

// NewHandler returns a stall handler.
func NewHandler(stalls StallService, log zerolog.Logger) *Handler {
	return &Handler{stalls: stalls, log: log}
}

// Register mounts the routes on r, which should be the /api/stalls subrouter.
// Routes with a literal segment are registered before GET /{id}.
func (h *Handler) Register(r *mux.Router) {
	vendor := rbac.RequireRoleHTTP(userdomain.RoleVendor)

	r.Handle("/create", vendor(http.HandlerFunc(h.Create))).Methods(http.MethodPost)
	r.Handle("/update/{id}", vendor(http.HandlerFunc(h.Update))).Methods(http.MethodPut)
	r.Handle("/delete/{id}", vendor(http.HandlerFunc(h.Delete))).Methods(http.MethodDelete)
	r.Handle("/menu/{id}", vendor(http.HandlerFunc(h.UpdateMenu))).Methods(http.MethodPut)
	r.Handle("/my", vendor(http.HandlerFunc(h.My))).Methods(http.MethodGet)
	r.Handle("/vendor", vendor(http.HandlerFunc(h.Vendor))).Methods(http.MethodGet)
	r.HandleFunc("/all", h.All).Methods(http.MethodGet)
	r.HandleFunc("/search", h.Search).Methods(http.MethodGet)
	r.HandleFunc("/top-rated", h.TopRated).Methods(http.MethodGet)
	r.HandleFunc("/nearby", h.Nearby).Methods(http.MethodGet)
	r.HandleFunc("/by-city", h.ByCity).Methods(http.MethodGet)
	r.HandleFunc("/impression/{id}", h.Impression).Methods(http.MethodPut)
	r.HandleFunc("/{id}", h.Get).Methods(http.MethodGet)
}

type stallRequest struct {
	StallName   string            `json:"stallName"`
	Address     string            `json:"address"`
	City        string            `json:"city"`
	Category    string            `json:"category"`
	Lat         *float64          `json:"lat"`
	Lng         *float64          `json:"lng"`
	OpeningTime string            `json:"openingTime"`
	ClosingTime string            `json:"closingTime"`
	Description string            `json:"description"`
	PhoneNumber string            `json:"phoneNumber"`
	MainImage   string            `json:"mainImage"`
	OtherImages []string          `json:"otherImages"`
	Menu        []domain.MenuItem `json:"menu"`
}

func (req *stallRequest) input() (service.StallInput, error) {
	if req.Lat == nil || req.Lng == nil {
		return service.StallInput{}, errors.New("lat and lng are required")
	}
	return service.StallInput{
		Name:           req.StallName,
		Address:        req.Address,
		City:           req.City,
		Category:       req.Category,
		Lat:            *req.Lat,
		Lng:            *req.Lng,
		OpeningTime:    req.OpeningTime,
		ClosingTime:    req.ClosingTime,
		Description:    req.Description,
		Phone:          req.PhoneNumber,
		MainImageURL:   req.MainImage,
		OtherImageURLs: req.OtherImages,
		Menu:           req.Menu,
	}, nil
}

type stallResponse struct {
	Message string        `json:"message"`
	Stall   *domain.Stall `json:"stall"`
}

type menuRequest struct {
	MenuItems []domain.MenuItem `json:"menuItems"`
}

type menuResponse struct {
	Message string            `json:"message"`
	Menu    []domain.MenuItem `json:"menu"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Create adds a stall owned by the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeStall(w, r)
	if !ok {
		return
	}
	st, err := h.stalls.Create(r.Context(), actorFrom(r), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, stallResponse{Message: "Stall created successfully", Stall: st})
}

// Update overwrites a stall the caller owns.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeStall(w, r)
	if !ok {
		return
	}
	st, err := h.stalls.Update(r.Context(), actorFrom(r), mux.Vars(r)["id"], in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, stallResponse{Message: "Stall updated successfully", Stall: st})
}

// UpdateMenu replaces the menu of a stall the caller owns.
func (h *Handler) UpdateMenu(w http.ResponseWriter, r *http.Request) {
	var req menuRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, err.Error())
		return
	}
	if req.MenuItems == nil {
		httpjson.BadRequest(w, "menuItems is required")
		return
	}
	menu, err := h.stalls.UpdateMenu(r.Context(), actorFrom(r), mux.Vars(r)["id"], req.MenuItems)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, menuResponse{Message: "Menu updated successfully", Menu: menu})
}

// Delete removes a stall the caller owns.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.stalls.Delete(r.Context(), actorFrom(r), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, messageResponse{Message: "Stall deleted successfully"})
}

// Get returns one stall.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.stalls.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, st)
}

// All lists every stall.
func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.stalls.ListAll(r.Context()))
}

// My returns the caller's most recent stall.
func (h *Handler) My(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	st, err := h.stalls.MyStall(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, st)
}

// Vendor lists the caller's stalls.
func (h *Handler) Vendor(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserID(r.Context())
	h.writeList(w)(h.stalls.ListByOwner(r.Context(), userID))
}

// Search matches ?dish= against stall and dish names, optionally within ?city=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.writeList(w)(h.stalls.Search(r.Context(), q.Get("dish"), strings.TrimSpace(q.Get("city"))))
}

// TopRated lists stalls by average rating.
func (h *Handler) TopRated(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.stalls.TopRated(r.Context()))
}

// Nearby lists stalls around ?lat=&lng=.
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		httpjson.BadRequest(w, "Latitude and longitude required")
		return
	}
	h.writeList(w)(h.stalls.Nearby(r.Context(), lat, lng))
}

// ByCity lists stalls whose city contains ?city=.
func (h *Handler) ByCity(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.stalls.ByCity(r.Context(), r.URL.Query().Get("city")))
}

// Impression records a view. Anonymous callers are allowed.
func (h *Handler) Impression(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.GetUserID(r.Context())
	if err := h.stalls.AddImpression(r.Context(), mux.Vars(r)["id"], viewerID); err != nil {
		h.writeError(w, err)
		return
	}
	httpjson.Write(w, http.StatusOK, messageResponse{Message: "Impression added"})
}

func decodeStall(w http.ResponseWriter, r *http.Request) (service.StallInput, bool) {
	var req stallRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.BadRequest(w, err.Error())
		return service.StallInput{}, false
	}
	in, err := req.input()
	if err != nil {
		httpjson.BadRequest(w, err.Error())
		return service.StallInput{}, false
	}
	return in, true
}

func actorFrom(r *http.Request) service.Actor {
	userID, _ := middleware.GetUserID(r.Context())
	role, _ := middleware.GetRole(r.Context())
	return service.Actor{UserID: userID, Role: role}
}

func (h *Handler) writeList(w http.ResponseWriter) func([]*domain.Stall, error) {
	return func(list []*domain.Stall, err error) {
		if err != nil {
			h.writeError(w, err)
			return
		}
		if list == nil {
			list = []*domain.Stall{}
		}
		httpjson.Write(w, http.StatusOK, list)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidStall), errors.Is(err, service.ErrInvalidMenu):
		httpjson.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrStallNotFound):
		httpjson.Error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrForbidden):
		httpjson.Error(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, service.ErrDuplicateStallName):
		httpjson.Error(w, http.StatusConflict, "already_exists", err.Error())
	default:
		h.log.Error().Err(err).Msg("stall request failed")
		httpjson.Internal(w)
	}
}
