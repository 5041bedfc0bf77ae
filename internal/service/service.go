package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"warungpos/internal/cache"
	"warungpos/internal/domain"
	"warungpos/internal/notify"
	"warungpos/internal/store"
	"warungpos/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo        store.Repository
	notifier    notify.Sender
	reportCache cache.ReportCache
	reportTTL   time.Duration
}

func New(repo store.Repository, notifier notify.Sender, reportCache cache.ReportCache, reportTTL time.Duration) *Service {
	if notifier == nil {
		notifier = notify.NoopSender{}
	}
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if reportTTL <= 0 {
		reportTTL = time.Minute
	}

	return &Service{
		repo:        repo,
		notifier:    notifier,
		reportCache: reportCache,
		reportTTL:   reportTTL,
	}
}

func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("%w: no authenticated actor", store.ErrForbidden)
	}
	return actor, nil
}

func requireOwner(ctx context.Context) (domain.Actor, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Actor{}, err
	}
	if actor.Role != domain.RoleOwner {
		return domain.Actor{}, fmt.Errorf("%w: owner role required", store.ErrForbidden)
	}
	return actor, nil
}

// ownedOutlet resolves an outlet and verifies the actor owns it.
func (s *Service) ownedOutlet(ctx context.Context, actor domain.Actor, outletID string) (*domain.Outlet, error) {
	if outletID == "" {
		return nil, fmt.Errorf("%w: outlet id is required", store.ErrValidation)
	}
	outlet, err := s.repo.GetOutletByID(ctx, outletID)
	if err != nil {
		return nil, err
	}
	if outlet.OwnerID != actor.ID {
		return nil, fmt.Errorf("%w: not your outlet", store.ErrForbidden)
	}
	return outlet, nil
}

// accessibleOutlet resolves an outlet the actor may operate in: owners
// must own it, employees must be assigned to it.
func (s *Service) accessibleOutlet(ctx context.Context, actor domain.Actor, outletID string) (*domain.Outlet, error) {
	if actor.Role == domain.RoleOwner {
		return s.ownedOutlet(ctx, actor, outletID)
	}
	if outletID == "" {
		return nil, fmt.Errorf("%w: outlet id is required", store.ErrValidation)
	}
	if actor.OutletID != outletID {
		return nil, fmt.Errorf("%w: not your outlet", store.ErrForbidden)
	}
	return s.repo.GetOutletByID(ctx, outletID)
}

func (s *Service) ownerOutletIDs(ctx context.Context, ownerID string) ([]string, error) {
	outlets, err := s.repo.ListOutletsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(outlets))
	for _, o := range outlets {
		ids = append(ids, o.ID)
	}
	return ids, nil
}

// notifyUser pushes a message to every subscription of one user,
// dropping endpoints the push service reports as gone. Failures are
// logged, never returned.
func (s *Service) notifyUser(ctx context.Context, userID string, msg notify.Message) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		log.Printf("[service] WARN: cannot notify user %s: %v", userID, err)
		return
	}
	for _, sub := range user.PushSubscriptions {
		err := s.notifier.Send(ctx, sub, msg)
		if err == nil {
			continue
		}
		if errors.Is(err, notify.ErrSubscriptionGone) {
			if err := s.repo.RemovePushSubscription(ctx, user.ID, sub.Endpoint); err != nil {
				log.Printf("[service] WARN: failed to prune subscription for %s: %v", user.Email, err)
			}
			continue
		}
		log.Printf("[service] WARN: push delivery to %s failed: %v", user.Email, err)
	}
}

// notifyOutletStaff fans a message out to the outlet's employees and
// its owner.
func (s *Service) notifyOutletStaff(ctx context.Context, outlet *domain.Outlet, msg notify.Message) {
	staff, err := s.repo.ListUsersByOutlet(ctx, outlet.ID)
	if err != nil {
		log.Printf("[service] WARN: cannot list staff of outlet %s: %v", outlet.ID, err)
		staff = nil
	}
	seen := make([]string, 0, len(staff)+1)
	for _, u := range staff {
		s.notifyUser(ctx, u.ID, msg)
		seen = append(seen, u.ID)
	}
	if !slices.Contains(seen, outlet.OwnerID) {
		s.notifyUser(ctx, outlet.OwnerID, msg)
	}
}

// RegisterOwner creates a new owner account. The password must already
// be hashed by the caller.
func (s *Service) RegisterOwner(ctx context.Context, name string, email string, passwordHash string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || passwordHash == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", store.ErrValidation)
	}

	user := domain.User{
		ID:        xid.New("usr"),
		Name:      name,
		Email:     email,
		Password:  passwordHash,
		Role:      domain.RoleOwner,
		Verified:  true,
		CreatedAt: time.Now().UTC(),
	}
	return s.repo.CreateUser(ctx, user)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.GetUserByEmail(ctx, email)
}

func (s *Service) CurrentUser(ctx context.Context) (*domain.User, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetUserByID(ctx, actor.ID)
}

func (s *Service) SavePushSubscription(ctx context.Context, sub domain.PushSubscription) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(sub.Endpoint) == "" {
		return fmt.Errorf("%w: subscription endpoint is required", store.ErrValidation)
	}
	return s.repo.AddPushSubscription(ctx, actor.ID, sub)
}
