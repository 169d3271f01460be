package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/access"
	"github.com/iyhunko/mechanic-matching/internal/apperror"
	"github.com/iyhunko/mechanic-matching/internal/geo"
	"github.com/iyhunko/mechanic-matching/internal/metrics"
	"github.com/iyhunko/mechanic-matching/internal/model"
	"github.com/iyhunko/mechanic-matching/internal/repository"
	"github.com/iyhunko/mechanic-matching/internal/search"
	"github.com/iyhunko/mechanic-matching/internal/workflow"
)

const (
	// AvailableWindow bounds how old a pending request may be to be offered to mechanics.
	AvailableWindow        = 5 * time.Hour
	DefaultAvailableLimit  = 10
	MaxAvailableLimit      = 20
	maxAvailableScans      = 5
	urgentAfter            = 4 * time.Hour
	serviceRequestResource = "service request"
)

// ServiceRequestInput carries the client-editable request fields. On update nil fields
// are left unchanged.
type ServiceRequestInput struct {
	VehicleID              *uuid.UUID
	PreferredMechanicID    *uuid.UUID
	Title                  *string
	Description            *string
	ServiceType            *string
	UrgencyLevel           *model.UrgencyLevel
	EstimatedDurationHours *float64
	BudgetMax              *float64
	IsEmergency            *bool
	PreferredDate          *time.Time
	LocationAddress        *string
	LocationNotes          *string
	LocationLatitude       *float64
	LocationLongitude      *float64
}

// AvailableInput filters the available-requests listing.
type AvailableInput struct {
	UrgencyLevel     model.UrgencyLevel
	Limit            int
	PageToken        string
	WithinRadiusOnly bool
}

// TimeElapsed describes how long ago a request was created.
type TimeElapsed struct {
	Value     int    `json:"value"`
	Unit      string `json:"unit"`
	Formatted string `json:"formatted"`
	IsUrgent  bool   `json:"is_urgent"`
}

// AvailableRequest is a pending request offered to a mechanic.
type AvailableRequest struct {
	Request     *model.ServiceRequest
	TimeElapsed TimeElapsed
	// DistanceKm is set when both the mechanic and the request are located.
	DistanceKm *float64
}

// DistanceInfo is the distance between a mechanic and a service location.
type DistanceInfo struct {
	DistanceKm              float64
	Formatted               string
	EstimatedArrivalMinutes int
	TravelRadiusKm          float64
	WithinTravelRadius      bool
}

// ServiceRequestService implements the service-request lifecycle. Every state change is
// written together with an outbox event in one transaction.
type ServiceRequestService struct {
	repos repository.Transactor
	now   Clock
}

// NewServiceRequestService creates a new ServiceRequestService.
func NewServiceRequestService(repos repository.Transactor) *ServiceRequestService {
	return &ServiceRequestService{repos: repos, now: time.Now}
}

// Create opens a pending request for the acting client.
func (s *ServiceRequestService) Create(ctx context.Context, actor *model.User, in ServiceRequestInput) (*model.ServiceRequest, error) {
	if err := access.Require(actor, access.Clients); err != nil {
		return nil, err
	}

	req := &model.ServiceRequest{ClientID: actor.ID, UrgencyLevel: model.UrgencyMedium}
	in.apply(req)
	if err := s.validate(ctx, actor, req); err != nil {
		return nil, err
	}

	var created *model.ServiceRequest
	err := s.repos.WithinTransaction(ctx, func(repos repository.Repositories) error {
		var err error
		created, err = repos.ServiceRequests().Create(ctx, req)
		if err != nil {
			return translate(err, serviceRequestResource)
		}
		return recordEvent(ctx, repos, model.EventServiceRequestCreated, created, "")
	})
	if err != nil {
		return nil, err
	}

	metrics.ServiceRequestsCreated.Inc()
	slog.Info("service request created", slog.String("service_request_id", created.ID.String()),
		slog.String("client_id", actor.ID.String()), slog.String("urgency", string(created.UrgencyLevel)))
	return created, nil
}

// List returns requests visible to the acting user: administrators see every request,
// mechanics without the client role see the requests assigned to them and everybody
// else sees their own.
func (s *ServiceRequestService) List(ctx context.Context, actor *model.User, query repository.Query) ([]*model.ServiceRequest, error) {
	if err := access.Require(actor, access.Anyone); err != nil {
		return nil, err
	}
	if status, ok := query.Values[repository.StatusField]; ok && !model.ServiceRequestStatus(status).Valid() {
		return nil, apperror.NewFieldValidation("status", "is invalid")
	}

	switch {
	case actor.IsAdmin():
	case actor.HasRole(model.RoleMechanic) && !actor.HasRole(model.RoleClient):
		query.With(repository.MechanicField, actor.ID.String())
	default:
		query.With(repository.ClientField, actor.ID.String())
	}

	requests, err := s.repos.ServiceRequests().List(ctx, query)
	if err != nil {
		return nil, translate(err, serviceRequestResource)
	}
	return requests, nil
}

// Available lists pending unassigned requests created within AvailableWindow, newest first.
func (s *ServiceRequestService) Available(ctx context.Context, actor *model.User, in AvailableInput) ([]AvailableRequest, string, error) {
	if err := access.Require(actor, access.Mechanics); err != nil {
		return nil, "", err
	}

	limit := in.Limit
	if limit <= 0 {
		limit = DefaultAvailableLimit
	}
	limit = min(limit, MaxAvailableLimit)

	query := repository.NewQuery()
	if err := query.ApplyPagination(int32(limit), in.PageToken); err != nil {
		return nil, "", apperror.NewFieldValidation("page_token", "is invalid")
	}
	if in.UrgencyLevel != "" {
		if !in.UrgencyLevel.Valid() {
			return nil, "", apperror.NewFieldValidation("urgency_level", "is invalid")
		}
		query.With(repository.UrgencyField, string(in.UrgencyLevel))
	}

	origin, located := actor.Location()
	var radius float64
	if in.WithinRadiusOnly {
		if !located {
			return nil, "", search.ErrLocationRequired
		}
		var err error
		if radius, err = travelRadius(ctx, s.repos, actor.ID); err != nil {
			return nil, "", err
		}
	}

	now := s.now()
	since := now.Add(-AvailableWindow)
	out := make([]AvailableRequest, 0, limit)
	var next string
	// radius filtering can thin a batch out, so keep reading until the page is full
	for range maxAvailableScans {
		batch, err := s.repos.ServiceRequests().ListAvailable(ctx, since, *query)
		if err != nil {
			return nil, "", translate(err, serviceRequestResource)
		}

		for i, req := range batch {
			item := AvailableRequest{Request: req, TimeElapsed: ElapsedSince(req.CreatedAt, now)}
			if p, ok := req.Location(); ok && located {
				if d, err := geo.Distance(origin, p); err == nil {
					d = geo.Round(d, 2)
					item.DistanceKm = &d
				}
			}
			if in.WithinRadiusOnly && (item.DistanceKm == nil || !geo.WithinRadius(*item.DistanceKm, radius)) {
				continue
			}
			out = append(out, item)
			if len(out) == limit {
				if i == len(batch)-1 && len(batch) < limit {
					return out, "", nil
				}
				return out, cursorAt(req).Encode(), nil
			}
		}

		if len(batch) < limit {
			return out, "", nil
		}
		cursor := cursorAt(batch[len(batch)-1])
		query.Paginator = &cursor
		next = cursor.Encode()
	}
	return out, next, nil
}

func cursorAt(req *model.ServiceRequest) repository.Paginator {
	return repository.Paginator{LastID: req.ID, LastCreatedAt: req.CreatedAt}
}

// Get returns a request to its client, its assigned mechanic or an administrator.
func (s *ServiceRequestService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.ServiceRequest, error) {
	req, err := s.find(ctx, s.repos, id)
	if err != nil {
		return nil, err
	}
	if err := access.ServiceRequestParty(actor, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Distance computes how far the acting mechanic is from a request's service location.
func (s *ServiceRequestService) Distance(ctx context.Context, actor *model.User, id uuid.UUID) (*DistanceInfo, error) {
	if err := access.Require(actor, access.Mechanics); err != nil {
		return nil, err
	}
	origin, err := search.Origin(actor)
	if err != nil {
		return nil, err
	}
	req, err := s.find(ctx, s.repos, id)
	if err != nil {
		return nil, err
	}
	target, ok := req.Location()
	if !ok {
		return nil, apperror.NewPrecondition("this service request has no location")
	}

	d, err := geo.Distance(origin, target)
	if err != nil {
		return nil, err
	}
	radius, err := travelRadius(ctx, s.repos, actor.ID)
	if err != nil {
		return nil, err
	}
	return &DistanceInfo{
		DistanceKm:              geo.Round(d, 2),
		Formatted:               geo.FormatDistance(d),
		EstimatedArrivalMinutes: geo.EstimatedArrivalMinutes(d),
		TravelRadiusKm:          radius,
		WithinTravelRadius:      geo.WithinRadius(d, radius),
	}, nil
}

// Update edits a pending request owned by the acting client.
func (s *ServiceRequestService) Update(ctx context.Context, actor *model.User, id uuid.UUID, in ServiceRequestInput) (*model.ServiceRequest, error) {
	req, err := s.find(ctx, s.repos, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.AuthorizeUpdate(actor, req); err != nil {
		return nil, err
	}

	in.apply(req)
	if err := s.validate(ctx, actor, req); err != nil {
		return nil, err
	}

	err = s.repos.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if err := repos.ServiceRequests().Update(ctx, req); err != nil {
			return stateChangeError(err)
		}
		return recordEvent(ctx, repos, model.EventServiceRequestUpdated, req, "")
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Delete removes a pending or cancelled request owned by the acting client.
func (s *ServiceRequestService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	req, err := s.find(ctx, s.repos, id)
	if err != nil {
		return err
	}
	if err := workflow.AuthorizeDelete(actor, req); err != nil {
		return err
	}

	return s.repos.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if err := repos.ServiceRequests().Delete(ctx, id); err != nil {
			return stateChangeError(err)
		}
		return recordEvent(ctx, repos, model.EventServiceRequestDeleted, req, "")
	})
}

// Accept assigns the acting mechanic to a pending request. Of several concurrent accepts
// exactly one succeeds; the others get a ConflictError.
func (s *ServiceRequestService) Accept(ctx context.Context, actor *model.User, id uuid.UUID) (*model.ServiceRequest, error) {
	return s.Transition(ctx, actor, id, model.StatusAccepted, nil)
}

// Reject declines a pending request.
func (s *ServiceRequestService) Reject(ctx context.Context, actor *model.User, id uuid.UUID) (*model.ServiceRequest, error) {
	return s.Transition(ctx, actor, id, model.StatusRejected, nil)
}

// Transition moves a request to status to. finalCost may only be given when completing.
// Completing a request increments the assigned mechanic's job counter.
func (s *ServiceRequestService) Transition(ctx context.Context, actor *model.User, id uuid.UUID, to model.ServiceRequestStatus, finalCost *float64) (*model.ServiceRequest, error) {
	if err := access.Require(actor, access.Anyone); err != nil {
		return nil, err
	}
	if finalCost != nil {
		if to != model.StatusCompleted {
			return nil, apperror.NewFieldValidation("final_cost", "can only be set when completing a request")
		}
		if *finalCost < 0 {
			return nil, apperror.NewFieldValidation("final_cost", "must not be negative")
		}
	}

	req, err := s.find(ctx, s.repos, id)
	if err != nil {
		return nil, err
	}
	if err := workflow.Authorize(actor, req, to); err != nil {
		var conflictErr *apperror.ConflictError
		if errors.As(err, &conflictErr) {
			metrics.ServiceRequestClaimConflicts.Inc()
		}
		return nil, err
	}

	from := req.Status
	var updated *model.ServiceRequest
	err = s.repos.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if to == model.StatusAccepted {
			if err := repos.ServiceRequests().Claim(ctx, id, actor.ID); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					metrics.ServiceRequestClaimConflicts.Inc()
					return apperror.NewConflict("this service request is no longer available")
				}
				return translate(err, serviceRequestResource)
			}
		} else if err := repos.ServiceRequests().UpdateStatus(ctx, id, from, to, finalCost); err != nil {
			return stateChangeError(err)
		}

		if to == model.StatusCompleted {
			if err := repos.MechanicProfiles().IncrementJobs(ctx, *req.MechanicID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return translate(err, "mechanic profile")
			}
		}

		var err error
		if updated, err = s.find(ctx, repos, id); err != nil {
			return err
		}
		return recordEvent(ctx, repos, model.EventServiceRequestStatus, updated, from)
	})
	if err != nil {
		return nil, err
	}

	metrics.ServiceRequestTransitions.WithLabelValues(string(to)).Inc()
	slog.Info("service request status changed", slog.String("service_request_id", id.String()),
		slog.String("from", string(from)), slog.String("to", string(to)), slog.String("actor_id", actor.ID.String()))
	return updated, nil
}

// Rate stores the owning client's rating of a completed request and folds it into the
// assigned mechanic's running average.
func (s *ServiceRequestService) Rate(ctx context.Context, actor *model.User, id uuid.UUID, rating int) (*model.ServiceRequest, *model.MechanicProfile, error) {
	if err := access.Require(actor, access.Anyone); err != nil {
		return nil, nil, err
	}
	if rating < model.MinClientRating || rating > model.MaxClientRating {
		return nil, nil, apperror.NewFieldValidation("rating", "must be between 1 and 5")
	}

	req, err := s.find(ctx, s.repos, id)
	if err != nil {
		return nil, nil, err
	}
	if err := workflow.AuthorizeRating(actor, req); err != nil {
		return nil, nil, err
	}

	var profile *model.MechanicProfile
	err = s.repos.WithinTransaction(ctx, func(repos repository.Repositories) error {
		if err := repos.ServiceRequests().SetClientRating(ctx, id, rating); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperror.NewConflict("this service request has already been rated")
			}
			return translate(err, serviceRequestResource)
		}

		var err error
		profile, err = repos.MechanicProfiles().ApplyRating(ctx, *req.MechanicID, rating)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return translate(err, "mechanic profile")
			}
			slog.Warn("rated mechanic has no profile", slog.String("mechanic_id", req.MechanicID.String()))
		}

		req.ClientRating = &rating
		return recordEvent(ctx, repos, model.EventServiceRequestRated, req, "")
	})
	if err != nil {
		return nil, nil, err
	}
	return req, profile, nil
}

func (s *ServiceRequestService) find(ctx context.Context, repos repository.Repositories, id uuid.UUID) (*model.ServiceRequest, error) {
	req, err := repos.ServiceRequests().FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, serviceRequestResource)
	}
	return req, nil
}

// validate checks the request attributes and that referenced entities belong to the client.
func (s *ServiceRequestService) validate(ctx context.Context, actor *model.User, req *model.ServiceRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	if req.VehicleID != nil {
		v, err := s.repos.Vehicles().FindByID(ctx, *req.VehicleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.NewFieldValidation("vehicle_id", "does not exist")
			}
			return translate(err, "vehicle")
		}
		if v.UserID != actor.ID {
			return apperror.NewFieldValidation("vehicle_id", "must be one of your vehicles")
		}
	}

	if req.PreferredMechanicID != nil {
		m, err := s.repos.Users().FindByID(ctx, *req.PreferredMechanicID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperror.NewFieldValidation("preferred_mechanic_id", "does not exist")
			}
			return translate(err, "user")
		}
		if !m.HasRole(model.RoleMechanic) || !m.IsActive {
			return apperror.NewFieldValidation("preferred_mechanic_id", "must be an active mechanic")
		}
	}
	return nil
}

// ElapsedSince describes the time between created and now in minutes below an hour and
// in hours otherwise.
func ElapsedSince(created, now time.Time) TimeElapsed {
	elapsed := now.Sub(created)
	if elapsed < 0 {
		elapsed = 0
	}
	minutes := int(elapsed / time.Minute)
	hours := int(elapsed / time.Hour)

	if minutes < 60 {
		return TimeElapsed{Value: minutes, Unit: "minutos", Formatted: fmt.Sprintf("%d min", minutes), IsUrgent: elapsed >= urgentAfter}
	}
	return TimeElapsed{
		Value:     hours,
		Unit:      "horas",
		Formatted: fmt.Sprintf("%dh %dmin", hours, minutes%60),
		IsUrgent:  elapsed >= urgentAfter,
	}
}

func recordEvent(ctx context.Context, repos repository.Repositories, eventType string, req *model.ServiceRequest, previous model.ServiceRequestStatus) error {
	event, err := model.NewEvent(eventType, model.NewServiceRequestEventData(req, previous))
	if err != nil {
		return err
	}
	if _, err := repos.Events().Create(ctx, event); err != nil {
		return fmt.Errorf("failed to record %s event: %w", eventType, err)
	}
	return nil
}

// stateChangeError maps a lost conditional update to a conflict the client can retry.
func stateChangeError(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return apperror.NewConflict("the service request changed concurrently, reload and try again")
	}
	return translate(err, serviceRequestResource)
}

func (in ServiceRequestInput) apply(r *model.ServiceRequest) {
	if in.VehicleID != nil {
		r.VehicleID = in.VehicleID
	}
	if in.PreferredMechanicID != nil {
		r.PreferredMechanicID = in.PreferredMechanicID
	}
	setIfPresent(&r.Title, in.Title)
	setIfPresent(&r.Description, in.Description)
	setIfPresent(&r.ServiceType, in.ServiceType)
	setIfPresent(&r.LocationAddress, in.LocationAddress)
	setIfPresent(&r.LocationNotes, in.LocationNotes)
	if in.UrgencyLevel != nil {
		r.UrgencyLevel = model.UrgencyLevel(strings.ToLower(string(*in.UrgencyLevel)))
	}
	if in.EstimatedDurationHours != nil {
		r.EstimatedDurationHours = *in.EstimatedDurationHours
	}
	if in.BudgetMax != nil {
		r.BudgetMax = *in.BudgetMax
	}
	if in.IsEmergency != nil {
		r.IsEmergency = *in.IsEmergency
	}
	if in.PreferredDate != nil {
		r.PreferredDate = in.PreferredDate
	}
	if in.LocationLatitude != nil {
		r.LocationLatitude = in.LocationLatitude
	}
	if in.LocationLongitude != nil {
		r.LocationLongitude = in.LocationLongitude
	}
}
