package service

import (
	"context"
	"errors"

	"careshare-service/internal/apperr"
	"careshare-service/internal/models"
	"careshare-service/internal/store"
	"careshare-service/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AdminService gates moderation and user management behind a fresh
// is_admin check of the acting user
type AdminService struct {
	users     UserStore
	listings  *ListingService
	exchanges *ExchangeService
	purchases *PurchaseService
	logger    *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(
	users UserStore,
	listings *ListingService,
	exchanges *ExchangeService,
	purchases *PurchaseService,
) *AdminService {
	return &AdminService{
		users:     users,
		listings:  listings,
		exchanges: exchanges,
		purchases: purchases,
		logger:    util.Component("admin"),
	}
}

// requireAdmin reloads the acting user so a demoted admin loses access
// before their token expires
func (s *AdminService) requireAdmin(ctx context.Context, identity models.Identity) (*models.User, error) {
	if err := requireUser(identity); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, identity.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Forbidden("Admin access required")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to verify admin access")
	}
	if !user.IsAdmin {
		return nil, apperr.Forbidden("Admin access required")
	}
	return user, nil
}

// ListUsers returns every account
func (s *AdminService) ListUsers(ctx context.Context, identity models.Identity) ([]UserView, error) {
	if _, err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load users")
	}

	views := make([]UserView, 0, len(users))
	for i := range users {
		views = append(views, newUserView(&users[i]))
	}
	return views, nil
}

// UpdateUserRole grants or revokes admin. An admin cannot demote themselves.
func (s *AdminService) UpdateUserRole(ctx context.Context, identity models.Identity, userID int64, isAdmin bool) (*UserView, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.UpdateUserRole")
	defer span.End()

	admin, err := s.requireAdmin(ctx, identity)
	if err != nil {
		return nil, err
	}
	if admin.ID == userID && !isAdmin {
		return nil, apperr.Conflict("You cannot remove your own admin role")
	}

	user, err := s.users.UpdateUserRole(ctx, userID, isAdmin)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to update user role"))
	}

	s.logger.Info("User role updated",
		zap.Int64("user_id", userID),
		zap.Bool("is_admin", isAdmin),
		zap.Int64("admin_id", admin.ID))

	view := newUserView(user)
	return &view, nil
}

// DeleteUser removes an account and everything it owns
func (s *AdminService) DeleteUser(ctx context.Context, identity models.Identity, userID int64) error {
	ctx, span := util.StartSpan(ctx, "AdminService.DeleteUser")
	defer span.End()

	admin, err := s.requireAdmin(ctx, identity)
	if err != nil {
		return err
	}
	if admin.ID == userID {
		return apperr.Conflict("You cannot delete your own account")
	}

	err = s.users.DeleteUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return util.RecordError(span, apperr.Wrap(err, "Failed to delete user"))
	}
	// the user's listings went with them
	s.listings.invalidate(ctx)

	s.logger.Info("User deleted", zap.Int64("user_id", userID), zap.Int64("admin_id", admin.ID))
	return nil
}

// Stats gathers dashboard counts concurrently
func (s *AdminService) Stats(ctx context.Context, identity models.Identity) (*AdminStats, error) {
	ctx, span := util.StartSpan(ctx, "AdminService.Stats")
	defer span.End()

	if _, err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}

	var (
		stats     AdminStats
		exchanges *ExchangeStats
		products  *ProductStats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, admins, err := s.users.CountUsers(gctx)
		if err != nil {
			return apperr.Wrap(err, "Failed to count users")
		}
		stats.TotalUsers = total
		stats.AdminUsers = admins
		stats.RegularUsers = total - admins
		return nil
	})
	g.Go(func() error {
		var err error
		exchanges, err = s.exchanges.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		products, err = s.listings.Stats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TotalPurchases, err = s.purchases.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, util.RecordError(span, err)
	}

	stats.PendingExchanges = exchanges.Pending
	stats.ApprovedExchanges = exchanges.Approved
	stats.RejectedExchanges = exchanges.Rejected
	stats.TotalExchanges = exchanges.Total
	stats.Products = *products
	return &stats, nil
}

// ListExchangeRequests returns every exchange request, optionally narrowed to one status
func (s *AdminService) ListExchangeRequests(ctx context.Context, identity models.Identity, status string) ([]ExchangeRequestView, error) {
	if _, err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	return s.exchanges.ListAll(ctx, status)
}

// CountExchangeRequests counts exchange requests in a status
func (s *AdminService) CountExchangeRequests(ctx context.Context, identity models.Identity, status string) (int64, error) {
	if _, err := s.requireAdmin(ctx, identity); err != nil {
		return 0, err
	}
	return s.exchanges.CountByStatus(ctx, status)
}

// ExchangeStats returns exchange request counts per status
func (s *AdminService) ExchangeStats(ctx context.Context, identity models.Identity) (*ExchangeStats, error) {
	if _, err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	return s.exchanges.Stats(ctx)
}

func (s *AdminService) ApproveExchangeRequest(ctx context.Context, identity models.Identity, id int64) (*ExchangeRequestView, error) {
	if _, err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	return s.exchanges.AdminApprove(ctx, id)
}

func (s *AdminService) RejectExchangeRequest(ctx context.Context, identity models.Identity, id int64, reason string) (*ExchangeRequestView, error) {
	if _, err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	return s.exchanges.AdminReject(ctx, id, reason)
}

func (s *AdminService) DeleteExchangeRequest(ctx context.Context, identity models.Identity, id int64) error {
	if _, err := s.requireAdmin(ctx, identity); err != nil {
		return err
	}
	return s.exchanges.Delete(ctx, id)
}

// PendingProducts returns listings awaiting moderation, oldest first
func (s *AdminService) PendingProducts(ctx context.Context, identity models.Identity) ([]ProductView, error) {
	if _, err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	return s.listings.ListByStatus(ctx, models.ProductStatusPending)
}

func (s *AdminService) ApproveProduct(ctx context.Context, identity models.Identity, id int64) (*ProductView, error) {
	if _, err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	return s.listings.Approve(ctx, id)
}

func (s *AdminService) RejectProduct(ctx context.Context, identity models.Identity, id int64, reason string) (*ProductView, error) {
	if _, err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	return s.listings.Reject(ctx, id, reason)
}

// ProductStats returns listing counts per status
func (s *AdminService) ProductStats(ctx context.Context, identity models.Identity) (*ProductStats, error) {
	if _, err := s.requireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	return s.listings.Stats(ctx)
}
