package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govoffice/docdesk/internal/permission"
	"github.com/govoffice/docdesk/models"
	"github.com/govoffice/docdesk/repositories"
	"github.com/govoffice/docdesk/services"
	"github.com/govoffice/docdesk/services/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	if u := args.Get(0); u != nil {
		return u.([]*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return m
}

type stubTxManager struct {
	tx *stubTx
}

func (m *stubTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	m.tx = &stubTx{}
	return m.tx, nil
}

type stubTx struct {
	committed  bool
	rolledBack bool
}

func (t *stubTx) Commit() error   { t.committed = true; return nil }
func (t *stubTx) Rollback() error { t.rolledBack = true; return nil }

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) LogUserChange(action models.AuditAction, target *models.User, actor audit.Actor, meta audit.RequestMeta, changes map[string]interface{}) error {
	return m.Called(action, target, actor, meta, changes).Error(0)
}

type recordingCache struct {
	invalidated []uuid.UUID
}

func (c *recordingCache) Invalidate(id uuid.UUID) {
	c.invalidated = append(c.invalidated, id)
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

type fixture struct {
	repo    *MockUserRepository
	txMgr   *stubTxManager
	cache   *recordingCache
	auditor *MockAuditor
	service *Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:    new(MockUserRepository),
		txMgr:   &stubTxManager{},
		cache:   &recordingCache{},
		auditor: new(MockAuditor),
	}
	f.service = NewService(f.repo, f.txMgr, plainHasher{}, f.cache, f.auditor, zap.NewNop())
	return f
}

func adminActor() audit.Actor {
	id := uuid.New()
	return audit.Actor{UserID: &id, Username: "chief"}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("hashes password and normalizes grants", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Create", ctx, mock.AnythingOfType("*models.User")).Return(nil)
		f.auditor.On("LogUserChange", models.AuditActionUserCreated, mock.AnythingOfType("*models.User"), mock.Anything, mock.Anything, mock.Anything).Return(nil)

		user, err := f.service.Create(ctx, CreateInput{
			Username:    "clerk",
			Email:       "clerk@office.gov",
			Password:    "s3cret-pass",
			Role:        permission.RoleUser,
			Permissions: []permission.Permission{"reports:export", "audit:read", "reports:export"},
		}, adminActor(), audit.RequestMeta{})

		require.NoError(t, err)
		assert.Equal(t, "hashed:s3cret-pass", user.PasswordHash)
		assert.Equal(t, []permission.Permission{"audit:read", "reports:export"}, user.Permissions)
		assert.True(t, user.Active)
		f.repo.AssertExpectations(t)
		f.auditor.AssertExpectations(t)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.Create(ctx, CreateInput{Username: "x", Password: "p", Role: "emperor"}, adminActor(), audit.RequestMeta{})

		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
		assert.Equal(t, permission.Role("emperor"), services.GetErrorDetails(err)["role"])
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects ungrantable permission", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.Create(ctx, CreateInput{
			Username:    "x",
			Password:    "p",
			Role:        permission.RoleUser,
			Permissions: []permission.Permission{"documents:teleport"},
		}, adminActor(), audit.RequestMeta{})

		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
		assert.Equal(t, permission.Permission("documents:teleport"), services.GetErrorDetails(err)["permission"])
	})

	t.Run("propagates duplicate username", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Create", ctx, mock.Anything).Return(services.ErrDuplicateUsername)

		_, err := f.service.Create(ctx, CreateInput{Username: "clerk", Password: "p", Role: permission.RoleUser}, adminActor(), audit.RequestMeta{})

		assert.Same(t, services.ErrDuplicateUsername, err)
		f.auditor.AssertNotCalled(t, "LogUserChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("changes role and grants then evicts cache", func(t *testing.T) {
		f := newFixture()
		user := models.NewUser("clerk", "clerk@office.gov", "Clerk", "old", permission.RoleUser)
		f.repo.On("GetByID", ctx, user.ID).Return(user, nil)
		f.repo.On("Update", ctx, user).Return(nil)
		f.auditor.On("LogUserChange", models.AuditActionUserUpdated, user, mock.Anything, mock.Anything,
			mock.MatchedBy(func(changes map[string]interface{}) bool {
				_, role := changes["role"]
				_, perms := changes["permissions"]
				return role && perms && len(changes) == 2
			})).Return(nil)

		role := permission.RoleAdmin
		perms := []permission.Permission{"role:registrar"}
		updated, err := f.service.Update(ctx, user.ID, UpdateInput{Role: &role, Permissions: &perms}, adminActor(), audit.RequestMeta{})

		require.NoError(t, err)
		assert.Equal(t, permission.RoleAdmin, updated.Role)
		assert.Equal(t, perms, updated.Permissions)
		assert.True(t, f.txMgr.tx.committed)
		assert.Equal(t, []uuid.UUID{user.ID}, f.cache.invalidated)
		f.repo.AssertExpectations(t)
		f.auditor.AssertExpectations(t)
	})

	t.Run("no-op update skips write and audit", func(t *testing.T) {
		f := newFixture()
		user := models.NewUser("clerk", "clerk@office.gov", "Clerk", "old", permission.RoleUser)
		f.repo.On("GetByID", ctx, user.ID).Return(user, nil)

		active := true
		_, err := f.service.Update(ctx, user.ID, UpdateInput{Active: &active}, adminActor(), audit.RequestMeta{})

		require.NoError(t, err)
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		assert.Empty(t, f.cache.invalidated)
	})

	t.Run("password change is hashed and redacted in audit", func(t *testing.T) {
		f := newFixture()
		user := models.NewUser("clerk", "clerk@office.gov", "Clerk", "old", permission.RoleUser)
		f.repo.On("GetByID", ctx, user.ID).Return(user, nil)
		f.repo.On("Update", ctx, user).Return(nil)
		f.auditor.On("LogUserChange", models.AuditActionUserUpdated, user, mock.Anything, mock.Anything,
			map[string]interface{}{"password": "changed"}).Return(nil)

		password := "n3w-pass"
		updated, err := f.service.Update(ctx, user.ID, UpdateInput{Password: &password}, adminActor(), audit.RequestMeta{})

		require.NoError(t, err)
		assert.Equal(t, "hashed:n3w-pass", updated.PasswordHash)
		f.auditor.AssertExpectations(t)
	})

	t.Run("cannot deactivate yourself", func(t *testing.T) {
		f := newFixture()
		actor := adminActor()
		inactive := false

		_, err := f.service.Update(ctx, *actor.UserID, UpdateInput{Active: &inactive}, actor, audit.RequestMeta{})

		assert.Same(t, services.ErrCannotDeactivateYourself, err)
		assert.Nil(t, f.txMgr.tx)
	})

	t.Run("missing user rolls back", func(t *testing.T) {
		f := newFixture()
		id := uuid.New()
		f.repo.On("GetByID", ctx, id).Return(nil, services.ErrUserNotFound)

		active := false
		_, err := f.service.Update(ctx, id, UpdateInput{Active: &active}, adminActor(), audit.RequestMeta{})

		assert.True(t, services.IsNotFoundError(err))
		assert.True(t, f.txMgr.tx.rolledBack)
		assert.Empty(t, f.cache.invalidated)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes and evicts", func(t *testing.T) {
		f := newFixture()
		user := models.NewUser("clerk", "clerk@office.gov", "Clerk", "", permission.RoleUser)
		f.repo.On("GetByID", ctx, user.ID).Return(user, nil)
		f.repo.On("Delete", ctx, user.ID).Return(nil)
		f.auditor.On("LogUserChange", models.AuditActionUserDeleted, user, mock.Anything, mock.Anything, map[string]interface{}(nil)).
			Return(errors.New("audit buffer full"))

		err := f.service.Delete(ctx, user.ID, adminActor(), audit.RequestMeta{})

		require.NoError(t, err, "audit failures do not fail the operation")
		assert.True(t, f.txMgr.tx.committed)
		assert.Equal(t, []uuid.UUID{user.ID}, f.cache.invalidated)
	})

	t.Run("cannot delete yourself", func(t *testing.T) {
		f := newFixture()
		actor := adminActor()

		err := f.service.Delete(ctx, *actor.UserID, actor, audit.RequestMeta{})

		assert.Same(t, services.ErrCannotDeleteYourself, err)
		f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("repository error rolls back", func(t *testing.T) {
		f := newFixture()
		user := models.NewUser("clerk", "clerk@office.gov", "Clerk", "", permission.RoleUser)
		f.repo.On("GetByID", ctx, user.ID).Return(user, nil)
		f.repo.On("Delete", ctx, user.ID).Return(services.WrapInternal("failed to delete user", errors.New("boom")))

		err := f.service.Delete(ctx, user.ID, adminActor(), audit.RequestMeta{})

		assert.True(t, services.IsInternalError(err))
		assert.True(t, f.txMgr.tx.rolledBack)
		assert.Empty(t, f.cache.invalidated)
	})
}
