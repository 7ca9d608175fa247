package recommendation

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

type HandlerImpl struct {
	service Service
	logger  *slog.Logger
}

func NewHandlerImpl(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		service: service,
		logger:  logger,
	}
}

// GetRecommendations godoc
// @Summary      Rank places in a city
// @Description  Scores the city's place pool against a preference profile. Hard-excluded places are never ranked.
// @Tags         recommendations
// @Accept       json
// @Produce      json
// @Param        cityID   path  string                       true  "City id"
// @Param        request  body  types.RecommendationRequest  false "Scoring inputs"
// @Success      200  {object}  types.RecommendationResponse
// @Failure      422  {object}  map[string]interface{}
// @Router       /cities/{cityID}/recommendations [post]
func (h *HandlerImpl) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RecommendationHandler").Start(r.Context(), "GetRecommendations", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/cities/{cityID}/recommendations"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetRecommendations"))

	cityID := chi.URLParam(r, "cityID")
	if cityID == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "City ID is required")
		return
	}
	span.SetAttributes(attribute.String("city.id", cityID))

	var req types.RecommendationRequest
	if err := api.DecodeOptionalJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.GetRecommendations(ctx, cityID, req)
	if err != nil {
		l.ErrorContext(ctx, "Failed to rank recommendations", slog.Any("error", err))
		span.RecordError(err)
		api.ServiceErrorResponse(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}
