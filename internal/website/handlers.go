// Package website serves the platform's HTTP surface: the public menu
// endpoint, the tenant admin area and the master area. Every admin route sits
// behind the auth gate; handlers here assume the caller is already
// authorized for the tenant in the path.
package website

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/menuhub/menuhub/internal/auth"
	"github.com/menuhub/menuhub/internal/menu"
	"github.com/menuhub/menuhub/internal/models"
	"github.com/menuhub/menuhub/internal/store"
)

// maxUploadBytes bounds a whole multipart upload request.
const maxUploadBytes = 32 << 20 // 32MiB

// Handlers holds the HTTP handlers for the public and admin areas.
type Handlers struct {
	orgs  store.OrganizationStore
	users store.UserStore
	menus *menu.Manager
}

// NewHandlers creates the website handlers.
func NewHandlers(orgs store.OrganizationStore, users store.UserStore, menus *menu.Manager) *Handlers {
	return &Handlers{
		orgs:  orgs,
		users: users,
		menus: menus,
	}
}

// Register wires all routes into the mux. The literal /admin/master routes
// take precedence over the /admin/{slug} pattern.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Health)

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /login", h.LoginPage)

	mux.HandleFunc("GET /api/menus/{slug}", h.PublicMenu)

	mux.HandleFunc("GET /admin", h.AdminRedirect)
	mux.HandleFunc("GET /admin/{slug}", h.AdminOrganization)
	mux.HandleFunc("POST /admin/{slug}/images", h.UploadImages)
	mux.HandleFunc("DELETE /admin/{slug}/images/{id}", h.DeleteImage)

	mux.HandleFunc("GET /admin/master", h.ListOrganizations)
	mux.HandleFunc("GET /admin/master/organizations", h.ListOrganizations)
	mux.HandleFunc("POST /admin/master/organizations", h.CreateOrganization)
	mux.HandleFunc("PUT /admin/master/organizations/{id}", h.UpdateOrganization)
	mux.HandleFunc("DELETE /admin/master/organizations/{id}", h.DeleteOrganization)
	mux.HandleFunc("POST /admin/master/users", h.CreateUser)
}

// Health is the liveness endpoint.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type menuImagePayload struct {
	ID        uuid.UUID `json:"id"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

type organizationPayload struct {
	ID        uuid.UUID `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	WhatsApp  string    `json:"whatsapp,omitempty"`
	Instagram string    `json:"instagram,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toOrganizationPayload(org *models.Organization) organizationPayload {
	return organizationPayload{
		ID:        org.ID,
		Slug:      org.Slug,
		Name:      org.Name,
		WhatsApp:  org.WhatsApp,
		Instagram: org.Instagram,
		CreatedAt: org.CreatedAt,
	}
}

func toImagePayloads(images []*models.MenuImage) []menuImagePayload {
	payloads := make([]menuImagePayload, 0, len(images))
	for _, img := range images {
		payloads = append(payloads, menuImagePayload{
			ID:        img.ID,
			ImageURL:  img.ImageURL,
			CreatedAt: img.CreatedAt,
		})
	}
	return payloads
}

// PublicMenu returns the data behind a tenant's public page: the
// organization's display info and its menu images for the carousel, newest
// first. Open to everyone.
func (h *Handlers) PublicMenu(w http.ResponseWriter, r *http.Request) {
	org, ok := h.orgBySlug(w, r, r.PathValue("slug"))
	if !ok {
		return
	}

	images, err := h.menus.List(r.Context(), org.ID)
	if err != nil {
		log.Error().Err(err).Str("org_id", org.ID.String()).Msg("Failed to list menu images")
		writeError(w, http.StatusBadGateway, "temporarily unavailable, try again")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"organization": toOrganizationPayload(org),
		"images":       toImagePayloads(images),
	})
}

// AdminRedirect forwards an authenticated caller to their own admin page.
func (h *Handlers) AdminRedirect(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, auth.RedirectLogin, http.StatusFound)
		return
	}

	if principal.IsMaster() {
		http.Redirect(w, r, "/admin/master", http.StatusFound)
		return
	}

	org, err := h.orgs.Get(r.Context(), principal.OrganizationID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to resolve caller's organization")
		http.Redirect(w, r, auth.RedirectHome, http.StatusFound)
		return
	}

	http.Redirect(w, r, "/admin/"+org.Slug, http.StatusFound)
}

// AdminOrganization returns the admin panel data for one tenant: the
// organization plus its image set and remaining quota slots.
func (h *Handlers) AdminOrganization(w http.ResponseWriter, r *http.Request) {
	org, ok := h.orgBySlug(w, r, r.PathValue("slug"))
	if !ok {
		return
	}

	images, err := h.menus.List(r.Context(), org.ID)
	if err != nil {
		log.Error().Err(err).Str("org_id", org.ID.String()).Msg("Failed to list menu images")
		writeError(w, http.StatusBadGateway, "temporarily unavailable, try again")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"organization": toOrganizationPayload(org),
		"images":       toImagePayloads(images),
		"max_images":   menu.MaxImages,
		"remaining":    menu.MaxImages - len(images),
	})
}

// UploadImages admits a multipart batch of menu images for the tenant. The
// whole batch is rejected when it exceeds the quota; the response then names
// the exact number of remaining slots.
func (h *Handlers) UploadImages(w http.ResponseWriter, r *http.Request) {
	org, ok := h.orgBySlug(w, r, r.PathValue("slug"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	fileHeaders := r.MultipartForm.File["images"]
	if len(fileHeaders) == 0 {
		writeError(w, http.StatusBadRequest, "no images in request")
		return
	}

	var files []menu.File
	for _, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file in request")
			return
		}
		defer f.Close()

		files = append(files, menu.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}

	added, err := h.menus.Upload(r.Context(), org, files)
	if err != nil {
		var quotaErr *menu.QuotaExceededError
		if errors.As(err, &quotaErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":     quotaErr.Error(),
				"remaining": quotaErr.Remaining,
			})
			return
		}

		// Partial batches stay committed; tell the caller how far it got
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": "upload failed, try again",
			"added": added,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"added": added})
}

// DeleteImage removes one image from the tenant's set. Deleting an id that
// doesn't exist in this tenant's set is reported as not found, never as
// silent success.
func (h *Handlers) DeleteImage(w http.ResponseWriter, r *http.Request) {
	org, ok := h.orgBySlug(w, r, r.PathValue("slug"))
	if !ok {
		return
	}

	imageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image id")
		return
	}

	if err := h.menus.Remove(r.Context(), org.ID, imageID); err != nil {
		if errors.Is(err, store.ErrMenuImageNotFound) {
			writeError(w, http.StatusNotFound, "image not found")
			return
		}
		log.Error().Err(err).Str("image_id", imageID.String()).Msg("Failed to remove menu image")
		writeError(w, http.StatusBadGateway, "delete failed, try again")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListOrganizations returns all tenants, newest first. Master area.
func (h *Handlers) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list organizations")
		writeError(w, http.StatusBadGateway, "temporarily unavailable, try again")
		return
	}

	payloads := make([]organizationPayload, 0, len(orgs))
	for _, org := range orgs {
		payloads = append(payloads, toOrganizationPayload(org))
	}

	writeJSON(w, http.StatusOK, map[string]any{"organizations": payloads})
}

type createOrganizationRequest struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	WhatsApp  string `json:"whatsapp"`
	Instagram string `json:"instagram"`
}

// CreateOrganization provisions a new tenant. Master area.
func (h *Handlers) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req createOrganizationRequest
	if !readJSON(w, r, &req) {
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate id")
		return
	}

	now := time.Now()
	org := &models.Organization{
		ID:        id,
		Slug:      req.Slug,
		Name:      req.Name,
		WhatsApp:  req.WhatsApp,
		Instagram: req.Instagram,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := org.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orgs.Create(r.Context(), org); err != nil {
		if errors.Is(err, store.ErrSlugAlreadyExists) {
			writeError(w, http.StatusConflict, "slug already in use")
			return
		}
		log.Error().Err(err).Str("slug", org.Slug).Msg("Failed to create organization")
		writeError(w, http.StatusBadGateway, "create failed, try again")
		return
	}

	writeJSON(w, http.StatusCreated, toOrganizationPayload(org))
}

type updateOrganizationRequest struct {
	Name      string `json:"name"`
	WhatsApp  string `json:"whatsapp"`
	Instagram string `json:"instagram"`
}

// UpdateOrganization updates a tenant's display fields. The slug is
// immutable once published-to and cannot be changed here. Master area.
func (h *Handlers) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	var req updateOrganizationRequest
	if !readJSON(w, r, &req) {
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "organization name is required")
		return
	}

	org, err := h.orgs.Get(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			writeError(w, http.StatusNotFound, "organization not found")
			return
		}
		writeError(w, http.StatusBadGateway, "temporarily unavailable, try again")
		return
	}

	org.Name = req.Name
	org.WhatsApp = req.WhatsApp
	org.Instagram = req.Instagram

	if err := h.orgs.Update(r.Context(), org); err != nil {
		log.Error().Err(err).Str("org_id", orgID.String()).Msg("Failed to update organization")
		writeError(w, http.StatusBadGateway, "update failed, try again")
		return
	}

	writeJSON(w, http.StatusOK, toOrganizationPayload(org))
}

// DeleteOrganization removes a tenant. Its users and image records go with
// it. Master area.
func (h *Handlers) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid organization id")
		return
	}

	if err := h.orgs.Delete(r.Context(), orgID); err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			writeError(w, http.StatusNotFound, "organization not found")
			return
		}
		log.Error().Err(err).Str("org_id", orgID.String()).Msg("Failed to delete organization")
		writeError(w, http.StatusBadGateway, "delete failed, try again")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createUserRequest struct {
	SubjectID string `json:"subject_id"` // id issued by the identity provider
	OrgSlug   string `json:"org_slug"`   // empty for master accounts
	IsMaster  bool   `json:"is_master"`
}

// CreateUser provisions a user account, either scoped to an organization or
// platform-wide master. Master area.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !readJSON(w, r, &req) {
		return
	}

	subjectID, err := uuid.Parse(req.SubjectID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subject id")
		return
	}

	user := &models.UserAccount{
		ID:        subjectID,
		IsMaster:  req.IsMaster,
		CreatedAt: time.Now(),
	}

	if req.OrgSlug != "" {
		org, err := h.orgs.GetBySlug(r.Context(), req.OrgSlug)
		if err != nil {
			if errors.Is(err, store.ErrOrganizationNotFound) {
				writeError(w, http.StatusNotFound, "organization not found")
				return
			}
			writeError(w, http.StatusBadGateway, "temporarily unavailable, try again")
			return
		}
		user.OrganizationID = &org.ID
	}

	if err := user.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			writeError(w, http.StatusConflict, "account already exists")
			return
		}
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to create user")
		writeError(w, http.StatusBadGateway, "create failed, try again")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        user.ID,
		"is_master": user.IsMaster,
	})
}

// orgBySlug loads the organization named in the path, writing the error
// response itself when it can't.
func (h *Handlers) orgBySlug(w http.ResponseWriter, r *http.Request, slug string) (*models.Organization, bool) {
	org, err := h.orgs.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return nil, false
		}
		log.Error().Err(err).Str("slug", slug).Msg("Organization lookup failed")
		writeError(w, http.StatusBadGateway, "temporarily unavailable, try again")
		return nil, false
	}
	return org, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
