package generation

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/FACorreiaa/go-itinerary-planner/app/middleware"
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

// StartGeneration godoc
// @Summary      Start generating a draft trip
// @Description  Returns once the trip is generating. Poll GET /trips/{tripID} for progress.
// @Tags         generation
// @Accept       json
// @Produce      json
// @Param        tripID   path      string                        true   "Trip id"
// @Param        request  body      types.StartGenerationRequest  false  "Preference overrides"
// @Success      202      {object}  types.Trip
// @Failure      409      {object}  map[string]interface{}
// @Failure      422      {object}  map[string]interface{}
// @Failure      503      {object}  map[string]interface{}
// @Router       /trips/{tripID}/generate [post]
func (h *HandlerImpl) StartGeneration(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("GenerationHandler").Start(r.Context(), "StartGeneration", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/generate"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "StartGeneration"))

	userID, ok := appMiddleware.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	tripID, err := api.UUIDParam(r, "tripID")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.String("trip.id", tripID.String()))

	var req types.StartGenerationRequest
	if err := api.DecodeOptionalJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.service.StartGeneration(ctx, userID, tripID, req.Preferences)
	if err != nil {
		l.WarnContext(ctx, "Generation not started", slog.String("tripID", tripID.String()), slog.Any("error", err))
		span.RecordError(err)
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusAccepted, t)
}

// Regenerate godoc
// @Summary      Regenerate a trip
// @Description  Clears the current schedule and starts another attempt. Refused once the retry budget is spent.
// @Tags         generation
// @Produce      json
// @Param        tripID  path      string  true  "Trip id"
// @Success      202     {object}  types.Trip
// @Failure      409     {object}  map[string]interface{}
// @Failure      503     {object}  map[string]interface{}
// @Router       /trips/{tripID}/regenerate [post]
func (h *HandlerImpl) Regenerate(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("GenerationHandler").Start(r.Context(), "Regenerate", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/regenerate"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "Regenerate"))

	userID, ok := appMiddleware.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	tripID, err := api.UUIDParam(r, "tripID")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	span.SetAttributes(attribute.String("trip.id", tripID.String()))

	t, err := h.service.Regenerate(ctx, userID, tripID)
	if err != nil {
		l.WarnContext(ctx, "Regeneration refused", slog.String("tripID", tripID.String()), slog.Any("error", err))
		span.RecordError(err)
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusAccepted, t)
}
