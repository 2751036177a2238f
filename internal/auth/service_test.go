package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/repository"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserRepository) Delete(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *MockUserRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockTenantStore is a mock implementation of repository.TenantStore
type MockTenantStore struct {
	mock.Mock
}

var _ repository.TenantStore = (*MockTenantStore)(nil)

func (m *MockTenantStore) EnsureTable(ctx context.Context, tenant domain.TenantID) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantStore) Append(ctx context.Context, tenant domain.TenantID, records []domain.CanonicalRecord) (int, error) {
	args := m.Called(ctx, tenant, records)
	return args.Int(0), args.Error(1)
}

func (m *MockTenantStore) Load(ctx context.Context, tenant domain.TenantID) ([]domain.CanonicalRecord, error) {
	args := m.Called(ctx, tenant)
	return args.Get(0).([]domain.CanonicalRecord), args.Error(1)
}

var testHasher = NewHasher(bcrypt.MinCost)

func adminContext() context.Context {
	return ContextWithSession(context.Background(), Session{Username: "root", Tenant: domain.MustTenantID("ops"), Privileged: true})
}

func storedUser(t *testing.T, username, password, tenant string, admin bool) domain.User {
	t.Helper()
	hash, err := testHasher.HashPassword(password)
	require.NoError(t, err)
	return domain.NewUser(username, hash, domain.MustTenantID(tenant), admin)
}

func TestHasher_RoundTrip(t *testing.T) {
	hash, err := testHasher.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, testHasher.VerifyPassword("correct horse", hash))
	assert.False(t, testHasher.VerifyPassword("battery staple", hash))
}

func TestService_Authenticate(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetByUsername", mock.Anything, "ana").Return(storedUser(t, "ana", "s3cret-pass", "cte_ana", false), nil)
	users.On("GetByUsername", mock.Anything, "nobody").Return(domain.User{}, domain.ErrNotFound)
	svc := NewService(users, new(MockTenantStore), testHasher, zerolog.Nop())

	session, err := svc.Authenticate(context.Background(), "ana", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, Session{Username: "ana", Tenant: domain.MustTenantID("cte_ana")}, session)

	_, err = svc.Authenticate(context.Background(), "ana", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.Authenticate(context.Background(), "nobody", "whatever")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestService_CreateUserProvisionsTenantTable(t *testing.T) {
	users := new(MockUserRepository)
	store := new(MockTenantStore)
	tenant := domain.MustTenantID("cte_bruno")
	store.On("EnsureTable", mock.Anything, tenant).Return(nil).Once()
	users.On("Create", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.Username == "bruno" && u.Tenant == tenant && testHasher.VerifyPassword("long-enough", u.PasswordHash)
	})).Return(domain.NewUser("bruno", "hash", tenant, false), nil).Once()
	svc := NewService(users, store, testHasher, zerolog.Nop())

	user, err := svc.CreateUser(adminContext(), NewUserRequest{Username: " bruno ", Password: "long-enough", Tenant: "cte_bruno"})
	require.NoError(t, err)
	assert.Equal(t, "bruno", user.Username)
	users.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestService_CreateUserValidatesInput(t *testing.T) {
	svc := NewService(new(MockUserRepository), new(MockTenantStore), testHasher, zerolog.Nop())

	_, err := svc.CreateUser(adminContext(), NewUserRequest{Username: "x", Password: "long-enough", Tenant: "cte; DROP TABLE x"})
	assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)

	_, err = svc.CreateUser(adminContext(), NewUserRequest{Username: "x", Password: "short", Tenant: "ok"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateUser(adminContext(), NewUserRequest{Username: "  ", Password: "long-enough", Tenant: "ok"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestService_CreateUserRejectsOverlongInput(t *testing.T) {
	users := new(MockUserRepository)
	store := new(MockTenantStore)
	svc := NewService(users, store, testHasher, zerolog.Nop())

	_, err := svc.CreateUser(adminContext(), NewUserRequest{Username: "x", Password: strings.Repeat("p", MaxPasswordLength+1), Tenant: "ok"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateUser(adminContext(), NewUserRequest{Username: strings.Repeat("ç", MaxUsernameLength+1), Password: "long-enough", Tenant: "ok"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "EnsureTable", mock.Anything, mock.Anything)
}

func TestService_CreateUserAcceptsLimitLengths(t *testing.T) {
	users := new(MockUserRepository)
	store := new(MockTenantStore)
	tenant := domain.MustTenantID("ok")
	username := strings.Repeat("ç", MaxUsernameLength)
	store.On("EnsureTable", mock.Anything, tenant).Return(nil).Once()
	users.On("Create", mock.Anything, mock.Anything).Return(domain.NewUser(username, "hash", tenant, false), nil).Once()
	svc := NewService(users, store, testHasher, zerolog.Nop())

	_, err := svc.CreateUser(adminContext(), NewUserRequest{Username: username, Password: strings.Repeat("p", MaxPasswordLength), Tenant: "ok"})
	require.NoError(t, err)
	users.AssertExpectations(t)
}

func TestService_UserAdminRequiresPrivilege(t *testing.T) {
	svc := NewService(new(MockUserRepository), new(MockTenantStore), testHasher, zerolog.Nop())
	ctx := ContextWithSession(context.Background(), Session{Username: "ana", Tenant: domain.MustTenantID("cte_ana")})

	_, err := svc.CreateUser(ctx, NewUserRequest{Username: "x", Password: "long-enough", Tenant: "ok"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.ListUsers(ctx)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteUser(ctx, "x"), domain.ErrForbidden)
}

func TestService_DeleteUserRefusesSelf(t *testing.T) {
	users := new(MockUserRepository)
	users.On("Delete", mock.Anything, "ana").Return(nil).Once()
	svc := NewService(users, new(MockTenantStore), testHasher, zerolog.Nop())

	assert.ErrorIs(t, svc.DeleteUser(adminContext(), "root"), domain.ErrInvalidInput)
	assert.NoError(t, svc.DeleteUser(adminContext(), "ana"))
	users.AssertExpectations(t)
}

func TestService_BootstrapOnlyWhenEmpty(t *testing.T) {
	tenant := domain.MustTenantID("ops")

	users := new(MockUserRepository)
	users.On("Count", mock.Anything).Return(int64(0), nil).Once()
	users.On("Create", mock.Anything, mock.MatchedBy(func(u domain.User) bool { return u.IsAdmin && u.Tenant == tenant })).
		Return(domain.NewUser("root", "hash", tenant, true), nil).Once()
	store := new(MockTenantStore)
	store.On("EnsureTable", mock.Anything, tenant).Return(nil).Once()
	svc := NewService(users, store, testHasher, zerolog.Nop())

	created, err := svc.Bootstrap(context.Background(), NewUserRequest{Username: "root", Password: "change-me-now", Tenant: "ops"})
	require.NoError(t, err)
	assert.True(t, created)
	users.AssertExpectations(t)

	populated := new(MockUserRepository)
	populated.On("Count", mock.Anything).Return(int64(2), nil).Once()
	svc = NewService(populated, new(MockTenantStore), testHasher, zerolog.Nop())

	created, err = svc.Bootstrap(context.Background(), NewUserRequest{Username: "root", Password: "change-me-now", Tenant: "ops"})
	require.NoError(t, err)
	assert.False(t, created)
}
