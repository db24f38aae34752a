package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Handler serves /health from a set of named checks.
type Handler struct {
	service string
	timeout time.Duration
	checks  map[string]CheckFunc
	order   []string
}

// NewHandler creates a health handler for service.
func NewHandler(service string, timeout time.Duration) *Handler {
	return &Handler{
		service: service,
		timeout: timeout,
		checks:  make(map[string]CheckFunc),
	}
}

// AddCheck registers a named dependency check.
func (h *Handler) AddCheck(name string, check CheckFunc) *Handler {
	if _, ok := h.checks[name]; !ok {
		h.order = append(h.order, name)
	}
	h.checks[name] = check
	return h
}

// RegisterRoutes mounts GET /health.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Check)
}

// Check runs every registered check and reports 503 if any fails.
func (h *Handler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, name := range h.order {
		if err := h.checks[name](ctx); err != nil {
			results[name] = err.Error()
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":  status,
		"service": h.service,
		"checks":  results,
	})
}
