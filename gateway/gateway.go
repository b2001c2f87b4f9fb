// Package gateway exposes a model catalog over HTTP:
//
//	POST /v1/generate  {"model":"groq-qwen","text":"..."}
//	GET  /v1/models
//
// Errors use the standard AppError body; health pings every configured
// model.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/modelkit/auth/authctx"
	"github.com/kbukum/modelkit/auth/jwt"
	apperrors "github.com/kbukum/modelkit/errors"
	"github.com/kbukum/modelkit/logger"
	"github.com/kbukum/modelkit/models"
	"github.com/kbukum/modelkit/observability"
	"github.com/kbukum/modelkit/prompt"
	"github.com/kbukum/modelkit/server"
	"github.com/kbukum/modelkit/server/middleware"
	"github.com/kbukum/modelkit/validation"
)

// GenerateRequest is the body of POST /v1/generate. Unset fields keep the
// model's defaults. An empty Model uses the catalog default.
type GenerateRequest struct {
	Model             string        `json:"model"`
	Text              string        `json:"text" validate:"required"`
	System            *string       `json:"system,omitempty"`
	Temperature       *float64      `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	TopP              *float64      `json:"top_p,omitempty" validate:"omitempty,gt=0,lte=1"`
	TopK              *int          `json:"top_k,omitempty" validate:"omitempty,gte=0"`
	MaxNewTokens      *int          `json:"max_new_tokens,omitempty" validate:"omitempty,gt=0"`
	RepetitionPenalty *float64      `json:"repetition_penalty,omitempty" validate:"omitempty,gt=0"`
	History           []prompt.Turn `json:"history,omitempty"`
	// Stream switches the response to server-sent events.
	Stream bool `json:"stream,omitempty"`
}

// Options converts the request overrides into model options.
func (r GenerateRequest) Options() []models.Option {
	var opts []models.Option
	if r.System != nil {
		opts = append(opts, models.WithSystem(*r.System))
	}
	if r.Temperature != nil {
		opts = append(opts, models.WithTemperature(*r.Temperature))
	}
	if r.TopP != nil {
		opts = append(opts, models.WithTopP(*r.TopP))
	}
	if r.TopK != nil {
		opts = append(opts, models.WithTopK(*r.TopK))
	}
	if r.MaxNewTokens != nil {
		opts = append(opts, models.WithMaxNewTokens(*r.MaxNewTokens))
	}
	if r.RepetitionPenalty != nil {
		opts = append(opts, models.WithRepetitionPenalty(*r.RepetitionPenalty))
	}
	if len(r.History) > 0 {
		opts = append(opts, models.WithHistory(r.History...))
	}
	return opts
}

// GenerateResponse is the data of a successful POST /v1/generate.
type GenerateResponse struct {
	Model     string `json:"model"`
	Text      string `json:"text"`
	RequestID string `json:"request_id"`
}

// Handler serves generation requests from a catalog.
type Handler struct {
	catalog *models.Catalog
	log     *logger.Logger
}

// New creates a Handler over catalog.
func New(catalog *models.Catalog, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Get("gateway")
	}
	return &Handler{catalog: catalog, log: log.WithComponent("gateway")}
}

// Register mounts the /v1 routes on s and the default endpoints with a
// health checker over the catalog.
func (h *Handler) Register(s *server.Server, serviceName string) {
	s.RegisterDefaultEndpoints(serviceName, h.CheckHealth)
	h.Routes(s.GinEngine())
}

// Routes mounts the /v1 routes on r.
func (h *Handler) Routes(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/generate", h.Generate)
	v1.GET("/models", h.Models)
}

// Generate handles POST /v1/generate.
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := server.BindJSON(c, &req); err != nil {
		server.RespondWithError(c, err)
		return
	}
	if err := validation.Validate(req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	m, err := h.pick(ctx, req.Model)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if claims, ok := authctx.Get[*jwt.Claims](ctx); ok && !claims.Allows(m.Name()) {
		server.RespondWithError(c, apperrors.Forbidden("model "+m.Name()))
		return
	}

	if req.Stream {
		h.stream(c, m, req)
		return
	}

	text, err := m.Generate(ctx, req.Text, req.Options()...)
	if err != nil {
		h.log.WithContext(ctx).Warn("generate failed", logger.MergeWithError(
			logger.Fields(logger.FieldModel, m.Name()), err))
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, GenerateResponse{
		Model:     m.Name(),
		Text:      text,
		RequestID: middleware.GetRequestID(c),
	})
}

// stream relays chunks as SSE "message" events and ends with "done" or
// "error".
func (h *Handler) stream(c *gin.Context, m models.Model, req GenerateRequest) {
	s, ok := m.(models.Streamer)
	if !ok {
		server.RespondWithError(c, apperrors.InvalidInput("stream", "model "+m.Name()+" does not stream"))
		return
	}
	ch, err := s.GenerateStream(c.Request.Context(), req.Text, req.Options()...)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	done := gin.H{"model": m.Name(), "request_id": middleware.GetRequestID(c)}
	for chunk := range ch {
		if chunk.Err != nil {
			c.SSEvent("error", gin.H{"message": chunk.Err.Error()})
			c.Writer.Flush()
			return
		}
		if chunk.Content != "" {
			c.SSEvent("message", gin.H{"text": chunk.Content})
			c.Writer.Flush()
		}
		if chunk.Done {
			break
		}
	}
	c.SSEvent("done", done)
	c.Writer.Flush()
}

func (h *Handler) pick(ctx context.Context, name string) (models.Model, error) {
	if name == "" {
		return h.catalog.Default(ctx)
	}
	return h.catalog.Get(name)
}

// Models handles GET /v1/models.
func (h *Handler) Models(c *gin.Context) {
	names := h.catalog.Configured()
	infos := make([]models.Info, 0, len(names))
	for _, name := range names {
		info, err := h.catalog.Describe(name)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	server.RespondOK(c, infos)
}

// CheckHealth checks every configured model concurrently. An unreachable
// backend degrades the service without taking it down.
func (h *Handler) CheckHealth(ctx context.Context) []observability.Health {
	names := h.catalog.Configured()
	out := make([]observability.Health, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			hc := observability.Health{Name: name, Status: observability.HealthStatusUp}
			m, err := h.catalog.Get(name)
			if err != nil || !m.IsAvailable(ctx) {
				hc.Status = observability.HealthStatusDegraded
				hc.Message = "backend unreachable"
			}
			out[i] = hc.Timed(start)
		}()
	}
	wg.Wait()
	return out
}
