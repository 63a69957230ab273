package users

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/govoffice/docdesk/internal/permission"
	"github.com/govoffice/docdesk/models"
	"github.com/govoffice/docdesk/repositories"
	"github.com/govoffice/docdesk/services"
	"github.com/govoffice/docdesk/services/audit"
	"go.uber.org/zap"
)

// Hasher hashes new passwords.
type Hasher interface {
	Hash(password string) (string, error)
}

// CacheInvalidator evicts cached user records.
type CacheInvalidator interface {
	Invalidate(id uuid.UUID)
}

// Auditor records user administration events.
type Auditor interface {
	LogUserChange(action models.AuditAction, target *models.User, actor audit.Actor, meta audit.RequestMeta, changes map[string]interface{}) error
}

// CreateInput holds the fields of a new account.
type CreateInput struct {
	Username    string
	Email       string
	FullName    string
	Password    string
	Role        permission.Role
	Permissions []permission.Permission
}

// UpdateInput holds a partial account update. Nil fields are left unchanged.
type UpdateInput struct {
	Email       *string
	FullName    *string
	Password    *string
	Role        *permission.Role
	Permissions *[]permission.Permission
	Active      *bool
}

// Service manages office accounts.
type Service struct {
	users   repositories.UserRepository
	txMgr   repositories.TransactionManager
	hasher  Hasher
	cache   CacheInvalidator
	auditor Auditor
	logger  *zap.Logger
}

// NewService creates a new user Service. cache and auditor may be nil.
func NewService(users repositories.UserRepository, txMgr repositories.TransactionManager, hasher Hasher, cache CacheInvalidator, auditor Auditor, logger *zap.Logger) *Service {
	return &Service{
		users:   users,
		txMgr:   txMgr,
		hasher:  hasher,
		cache:   cache,
		auditor: auditor,
		logger:  logger,
	}
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns accounts ordered by username.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	return s.users.List(ctx, limit, offset)
}

// Create registers a new active account.
func (s *Service) Create(ctx context.Context, in CreateInput, actor audit.Actor, meta audit.RequestMeta) (*models.User, error) {
	if err := checkRole(in.Role); err != nil {
		return nil, err
	}
	perms, err := normalizePermissions(in.Permissions)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(in.Username, in.Email, in.FullName, hash, in.Role)
	user.Permissions = perms
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))
	s.audit(models.AuditActionUserCreated, user, actor, meta, map[string]interface{}{
		"permissions": perms,
	})
	return user, nil
}

// Update applies in to the account with the given id. Role, permission and
// active changes take effect on the user's next request.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, actor audit.Actor, meta audit.RequestMeta) (*models.User, error) {
	if in.Role != nil {
		if err := checkRole(*in.Role); err != nil {
			return nil, err
		}
	}
	var perms []permission.Permission
	if in.Permissions != nil {
		normalized, err := normalizePermissions(*in.Permissions)
		if err != nil {
			return nil, err
		}
		perms = normalized
	}
	if in.Active != nil && !*in.Active && actor.UserID != nil && *actor.UserID == id {
		return nil, services.ErrCannotDeactivateYourself
	}

	var hash string
	if in.Password != nil {
		h, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, services.WrapInternal("failed to hash password", err)
		}
		hash = h
	}

	type result struct {
		user    *models.User
		changes map[string]interface{}
	}
	res, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (result, error) {
		repo := s.users.WithTx(tx)
		user, err := repo.GetByID(ctx, id)
		if err != nil {
			return result{}, err
		}

		changes := make(map[string]interface{})
		if in.Email != nil && *in.Email != user.Email {
			changes["email"] = *in.Email
			user.Email = *in.Email
		}
		if in.FullName != nil && *in.FullName != user.FullName {
			changes["full_name"] = *in.FullName
			user.FullName = *in.FullName
		}
		if in.Role != nil && *in.Role != user.Role {
			changes["role"] = map[string]permission.Role{"from": user.Role, "to": *in.Role}
			user.Role = *in.Role
		}
		if in.Permissions != nil && !samePermissions(user.Permissions, perms) {
			changes["permissions"] = map[string][]permission.Permission{"from": user.Permissions, "to": perms}
			user.Permissions = perms
		}
		if in.Active != nil && *in.Active != user.Active {
			changes["active"] = *in.Active
			user.Active = *in.Active
		}
		if hash != "" {
			changes["password"] = "changed"
			user.PasswordHash = hash
		}

		if len(changes) == 0 {
			return result{user: user}, nil
		}
		user.UpdatedAt = time.Now()
		if err := repo.Update(ctx, user); err != nil {
			return result{}, err
		}
		return result{user: user, changes: changes}, nil
	})
	if err != nil {
		return nil, err
	}

	if len(res.changes) > 0 {
		s.invalidate(id)
		s.logger.Info("user updated",
			zap.String("user_id", id.String()),
			zap.Int("changed_fields", len(res.changes)))
		s.audit(models.AuditActionUserUpdated, res.user, actor, meta, res.changes)
	}
	return res.user, nil
}

// Delete removes an account. An administrator cannot delete their own account.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor audit.Actor, meta audit.RequestMeta) error {
	if actor.UserID != nil && *actor.UserID == id {
		return services.ErrCannotDeleteYourself
	}

	user, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) (*models.User, error) {
		repo := s.users.WithTx(tx)
		user, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return nil, err
		}
		return user, nil
	})
	if err != nil {
		return err
	}

	s.invalidate(id)
	s.logger.Info("user deleted",
		zap.String("user_id", id.String()),
		zap.String("username", user.Username))
	s.audit(models.AuditActionUserDeleted, user, actor, meta, nil)
	return nil
}

func (s *Service) invalidate(id uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(id)
	}
}

func (s *Service) audit(action models.AuditAction, user *models.User, actor audit.Actor, meta audit.RequestMeta, changes map[string]interface{}) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.LogUserChange(action, user, actor, meta, changes); err != nil {
		s.logger.Warn("failed to queue user audit event",
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func checkRole(role permission.Role) error {
	if !permission.IsKnownRole(role) {
		return services.ErrUnknownRole.WithDetail("role", role)
	}
	return nil
}

// normalizePermissions rejects tokens that cannot be granted and returns the
// remaining ones deduplicated and sorted.
func normalizePermissions(perms []permission.Permission) ([]permission.Permission, error) {
	for _, p := range perms {
		if !permission.IsGrantable(p) {
			return nil, services.ErrInvalidPermission.WithDetail("permission", p)
		}
	}
	return permission.NewSet(perms...).Slice(), nil
}

func samePermissions(a, b []permission.Permission) bool {
	if len(a) != len(b) {
		return false
	}
	sorted := append([]permission.Permission(nil), a...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i := range sorted {
		if sorted[i] != b[i] {
			return false
		}
	}
	return true
}

