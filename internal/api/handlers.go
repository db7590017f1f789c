package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/nodeservice"
	"github.com/starford/shelf/internal/observable"
	"github.com/starford/shelf/internal/persist"
	"github.com/starford/shelf/internal/view"
)

const maxJSONBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc    *nodeservice.Service
	views  *view.State
	status *observable.Value[*persist.Status]
}

// NewHandler creates a new Handler.
func NewHandler(svc *nodeservice.Service, views *view.State, status *observable.Value[*persist.Status]) *Handler {
	return &Handler{svc: svc, views: views, status: status}
}

// ListNodes handles GET /api/nodes.
//
//	@Summary		List the children of a directory, or the nodes carrying a tag
//	@Tags			nodes
//	@Produce		json
//	@Param			parent	query		string	false	"Parent id; empty for the root, \"trash\" for the trash"
//	@Param			tag		query		string	false	"Tag name"
//	@Success		200		{object}	NodeListResponse
//	@Security		BearerAuth
//	@Router			/nodes [get]
func (h *Handler) ListNodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		items []NodeListItem
		err   error
	)
	if tag := q.Get("tag"); tag != "" {
		items, err = h.svc.ListTagged(r.Context(), tag)
	} else {
		items, err = h.svc.ListChildren(r.Context(), q.Get("parent"))
	}
	if err != nil {
		writeError(w, "list nodes", err)
		return
	}
	writeJSON(w, http.StatusOK, NodeListResponse{Nodes: items, Total: len(items)})
}

// GetNode handles GET /api/nodes/{id}.
//
//	@Summary		Get a single node with its location and tag names
//	@Tags			nodes
//	@Produce		json
//	@Param			id	path		string	true	"Node id"
//	@Success		200	{object}	NodeDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.GetNode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get node", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// CreateNode handles POST /api/nodes.
//
//	@Summary		Create a text note, web anchor or directory
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNodeRequest	true	"Node to create"
//	@Success		201		{object}	models.Node
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes [post]
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lib := h.svc.Library()
	var (
		node models.Node
		err  error
	)
	switch req.Type {
	case createText:
		node, err = lib.CreateText(r.Context(), req.ParentID, req.Content)
	case createDirectory:
		node, err = lib.CreateDirectory(r.Context(), req.ParentID, req.Name)
	case createAnchor:
		node, err = lib.CreateAnchor(r.Context(), req.ParentID, models.Anchor{
			ContentURL:  req.URL,
			Title:       req.Title,
			Description: req.Description,
		})
	default:
		err = fmt.Errorf("node type %q: %w", req.Type, apperr.ErrInvalid)
	}
	if err != nil {
		writeError(w, "create node", err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// EditText handles PUT /api/nodes/{id}/text.
func (h *Handler) EditText(w http.ResponseWriter, r *http.Request) {
	var req EditTextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	node, err := h.svc.Library().EditText(r.Context(), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, "edit text", err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// Rename handles PUT /api/nodes/{id}/name.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	node, err := h.svc.Library().RenameDirectory(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeError(w, "rename directory", err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// Move handles PUT /api/nodes/{id}/parent.
func (h *Handler) Move(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.Library().Nodes.SetParent(r.Context(), id, req.ParentID); err != nil {
		writeError(w, "move node", err)
		return
	}
	h.writeNode(w, r, id)
}

// SetTags handles PUT /api/nodes/{id}/tags.
func (h *Handler) SetTags(w http.ResponseWriter, r *http.Request) {
	var req SetTagsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lib := h.svc.Library()
	id := chi.URLParam(r, "id")
	if _, ok := lib.Nodes.Get(id); !ok {
		writeError(w, "set tags", fmt.Errorf("node %q: %w", id, apperr.ErrNotFound))
		return
	}
	ids, err := lib.TagNames(r.Context(), req.Tags)
	if err != nil {
		writeError(w, "set tags", err)
		return
	}
	if _, err := lib.SetTags(r.Context(), id, ids); err != nil {
		writeError(w, "set tags", err)
		return
	}
	h.writeNode(w, r, id)
}

// DeleteNode handles DELETE /api/nodes/{id}.
//
//	@Summary		Delete a node; recursive=true removes a directory with its contents
//	@Tags			nodes
//	@Param			id			path		string	true	"Node id"
//	@Param			recursive	query		bool	false	"Remove everything below a directory"
//	@Success		200			{object}	RemoveResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/nodes/{id} [delete]
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	recursive, _ := strconv.ParseBool(r.URL.Query().Get("recursive"))
	n, err := h.svc.Remove(r.Context(), chi.URLParam(r, "id"), recursive)
	if err != nil {
		writeError(w, "delete node", err)
		return
	}
	writeJSON(w, http.StatusOK, RemoveResponse{Removed: n})
}

// ResolvePath handles GET /api/paths/{id}.
func (h *Handler) ResolvePath(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, err := h.svc.Library().Nodes.ResolvePath(id)
	if err != nil {
		writeError(w, "resolve path", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{ID: id, Path: path})
}

// CreatePath handles POST /api/directories.
//
//	@Summary		Create every missing directory along a slash-separated path
//	@Tags			directories
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePathRequest	true	"Path to create"
//	@Success		200		{object}	PathResponse
//	@Security		BearerAuth
//	@Router			/directories [post]
func (h *Handler) CreatePath(w http.ResponseWriter, r *http.Request) {
	var req CreatePathRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lib := h.svc.Library()
	id, err := lib.CreateDirectoryPath(r.Context(), req.Path)
	if err != nil {
		writeError(w, "create path", err)
		return
	}
	path, err := lib.Nodes.ResolvePath(id)
	if err != nil {
		writeError(w, "create path", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{ID: id, Path: path})
}

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tags": h.svc.Library().Tags.All(),
	})
}

// CreateTag handles POST /api/tags. An existing tag matching the name
// ignoring accents and case is returned instead of a new one.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req CreateTagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tags := h.svc.Library().Tags
	if tag, ok := tags.Find(req.Name); ok {
		writeJSON(w, http.StatusOK, tag)
		return
	}
	tag, err := tags.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, "create tag", err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// Tree handles GET /api/tree.
//
//	@Summary		Directory tree below a directory, or every top-level directory
//	@Tags			tree
//	@Produce		json
//	@Param			root	query		string	false	"Root directory id"
//	@Success		200		{array}		tree.Tree
//	@Security		BearerAuth
//	@Router			/tree [get]
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	trees, err := h.svc.Tree(r.Context(), r.URL.Query().Get("root"))
	if err != nil {
		writeError(w, "tree", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trees": trees})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across nodes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// GetView handles GET /api/view.
func (h *Handler) GetView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.views.Snapshot())
}

// PutView handles PUT /api/view.
func (h *Handler) PutView(w http.ResponseWriter, r *http.Request) {
	var snap view.Snapshot
	if !decodeJSON(w, r, &snap) {
		return
	}
	if err := h.views.Restore(snap); err != nil {
		writeError(w, "set view", err)
		return
	}
	writeJSON(w, http.StatusOK, h.views.Snapshot())
}

// ViewNodes handles GET /api/view/nodes: the nodes the current view shows.
func (h *Handler) ViewNodes(w http.ResponseWriter, _ *http.Request) {
	nodes := h.views.Apply(h.svc.Library().Nodes.All())
	items := make([]NodeListItem, len(nodes))
	for i, n := range nodes {
		items[i] = nodeservice.Summary(n)
	}
	writeJSON(w, http.StatusOK, NodeListResponse{Nodes: items, Total: len(items)})
}

// Status handles GET /api/status. An idle library reports null.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": h.status.Get()})
}

// Save handles POST /api/save.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Save(r.Context()); err != nil {
		writeError(w, "save", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": h.status.Get()})
}

func (h *Handler) writeNode(w http.ResponseWriter, r *http.Request, id string) {
	detail, err := h.svc.GetNode(r.Context(), id)
	if err != nil {
		writeError(w, "get node", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
