package viewer

import (
	_ "embed"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
	"github.com/conduit-lang/schemaviewer/internal/web/response"
	"github.com/conduit-lang/schemaviewer/internal/web/router"
	"go.uber.org/zap"
)

//go:embed assets/index.html
var indexPage []byte

// ProductName is the fixed branding text of the index page
const ProductName = "Schema Viewer"

// Handler serves the viewer endpoints. The registry can be replaced while serving.
type Handler struct {
	formatter atomic.Pointer[Formatter]
	builtins  []string
	logger    *zap.Logger
}

// Options configures a Handler
type Options struct {
	// Builtins overrides the app labels hidden by exclude_django; nil keeps the default set
	Builtins []string
	Logger   *zap.Logger
}

// NewHandler creates the viewer handler over registry
func NewHandler(registry *schema.Registry, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{builtins: opts.Builtins, logger: logger}
	h.SetRegistry(registry)
	return h
}

// SetRegistry switches the handler to registry. Requests already running finish against
// the previous one.
func (h *Handler) SetRegistry(registry *schema.Registry) {
	h.formatter.Store(NewFormatter(registry, h.builtins))
}

// Fingerprint identifies the registry currently served
func (h *Handler) Fingerprint() string {
	return h.formatter.Load().Fingerprint()
}

// Register adds the viewer routes to r under prefix. prefix is either empty or starts with
// "/" and has no trailing slash.
func (h *Handler) Register(r *router.Router, prefix string) {
	r.Get(prefix+"/", h.Index).Named("schema_viewer:index")
	r.Get(prefix+"/api/schema/", h.Schema).Named("schema_viewer:api_schema")
	r.Get(prefix+"/api/model/{app_label}/{model_name}/", h.Model).Named("schema_viewer:api_model")
}

// Index serves the static HTML page
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	response.HTML(w, http.StatusOK, indexPage)
}

// Schema serves the full schema document
func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		ExcludeBuiltins: router.QueryParamBool(r, "exclude_django", true),
		Apps:            router.QueryParamList(r, "apps"),
	}
	h.writeJSON(w, h.formatter.Load().Schema(filter))
}

// Model serves the detail document of one model, or 404 when it is unknown
func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	appLabel := router.PathParam(r, "app_label")
	modelName := router.PathParam(r, "model_name")

	detail, err := h.formatter.Load().Model(appLabel, modelName)
	if err != nil {
		if errors.Is(err, schema.ErrModelNotFound) || errors.Is(err, schema.ErrAppNotFound) {
			response.NotFound(w, "Model not found")
			return
		}
		h.logger.Error("model lookup failed", zap.String("app_label", appLabel), zap.String("model_name", modelName), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	h.writeJSON(w, detail)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	body, err := Encode(v)
	if err != nil {
		h.logger.Error("encoding response failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	response.Raw(w, http.StatusOK, response.ContentTypeJSON, body)
}
