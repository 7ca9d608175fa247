package trip

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

// CreateTrip godoc
// @Summary      Create a draft trip
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        request  body      types.CreateTripRequest  true  "Trip"
// @Success      201      {object}  types.Trip
// @Failure      400      {object}  map[string]interface{}
// @Failure      422      {object}  map[string]interface{}
// @Router       /trips [post]
func (h *HandlerImpl) CreateTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "CreateTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateTrip"))

	userID, ok := appMiddleware.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req types.CreateTripRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.service.CreateTrip(ctx, userID, req)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create trip", slog.Any("error", err))
		span.RecordError(err)
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, t)
}

// GetTrip godoc
// @Summary      Get a trip with its status, progress and schedule
// @Tags         trips
// @Produce      json
// @Param        tripID  path      string  true  "Trip id"
// @Success      200     {object}  types.Trip
// @Failure      404     {object}  map[string]interface{}
// @Router       /trips/{tripID} [get]
func (h *HandlerImpl) GetTrip(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "GetTrip", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}"),
	))
	defer span.End()

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

	t, err := h.service.GetTrip(ctx, userID, tripID)
	if err != nil {
		span.RecordError(err)
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

// UpdateActivity godoc
// @Summary      Move or resize a scheduled activity
// @Description  The activity becomes locked and is kept in place by later rebalances.
// @Tags         trips
// @Accept       json
// @Produce      json
// @Param        tripID      path      string              true  "Trip id"
// @Param        activityID  path      string              true  "Activity id"
// @Param        request     body      types.ActivityEdit  true  "Edit"
// @Success      200         {object}  types.Trip
// @Failure      409         {object}  map[string]interface{}
// @Router       /trips/{tripID}/activities/{activityID} [patch]
func (h *HandlerImpl) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "UpdateActivity", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/activities/{activityID}"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpdateActivity"))

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
	activityID, err := api.UUIDParam(r, "activityID")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var edit types.ActivityEdit
	if err := api.DecodeJSONBody(w, r, &edit); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.service.UpdateActivity(ctx, userID, tripID, activityID, edit)
	if err != nil {
		l.WarnContext(ctx, "Activity edit rejected", slog.Any("error", err))
		span.RecordError(err)
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}

// RemoveActivity godoc
// @Summary      Remove a scheduled activity
// @Tags         trips
// @Produce      json
// @Param        tripID      path      string  true  "Trip id"
// @Param        activityID  path      string  true  "Activity id"
// @Success      200         {object}  types.Trip
// @Router       /trips/{tripID}/activities/{activityID} [delete]
func (h *HandlerImpl) RemoveActivity(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("TripHandler").Start(r.Context(), "RemoveActivity", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trips/{tripID}/activities/{activityID}"),
	))
	defer span.End()

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
	activityID, err := api.UUIDParam(r, "activityID")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.service.RemoveActivity(ctx, userID, tripID, activityID)
	if err != nil {
		span.RecordError(err)
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, t)
}
