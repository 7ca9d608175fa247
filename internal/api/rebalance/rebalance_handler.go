package rebalance

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/FACorreiaa/go-itinerary-planner/app/middleware"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api"
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

// Rebalance godoc
// @Summary      Re-plan a finished trip around locked activities
// @Tags         trips
// @Produce      json
// @Param        tripID  path      string  true  "Trip id"
// @Success      200     {object}  types.Trip
// @Failure      409     {object}  map[string]interface{}
// @Router       /trips/{tripID}/rebalance [post]
func (h *HandlerImpl) Rebalance(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RebalanceHandler").Start(r.Context(), "Rebalance", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/rebalance"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "Rebalance"))

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

	t, err := h.service.Rebalance(ctx, userID, tripID)
	if err != nil {
		l.WarnContext(ctx, "Rebalance failed", slog.Any("error", err))
		span.RecordError(err)
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}
