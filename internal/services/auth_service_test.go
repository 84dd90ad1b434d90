package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"shoppingmall/internal/models"
	"shoppingmall/internal/repositories"
	"shoppingmall/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

const testJWTSecret = "test_jwt_secret"

func TestAuthService_RegisterUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	user := &models.User{
		Username: "testuser",
		Email:    "test@example.com",
		Password: "password123",
		Role:     models.RoleEmployee,
	}

	mockRepo.On("GetByUsername", mock.Anything, user.Username).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("GetByEmail", mock.Anything, user.Email).Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil).Once()

	err := authService.RegisterUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, user.Role, "self registration always yields a member")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// username already taken
	mockRepo.On("GetByUsername", mock.Anything, "testuser").Return(&models.User{ID: "1"}, nil).Once()
	err = authService.RegisterUser(ctx, &models.User{Username: "testuser", Email: "x@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, services.ErrUsernameTaken)
	assert.Contains(t, err.Error(), "'testuser'")
	mockRepo.AssertExpectations(t)

	// email already registered
	mockRepo.On("GetByUsername", mock.Anything, "other").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("GetByEmail", mock.Anything, "test@example.com").Return(&models.User{ID: "1"}, nil).Once()
	err = authService.RegisterUser(ctx, &models.User{Username: "other", Email: "test@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, services.ErrEmailTaken)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_EnsureEmployee(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	// already present: nothing is created
	mockRepo.On("GetByUsername", mock.Anything, "admin").Return(&models.User{ID: "a1"}, nil).Once()
	require.NoError(t, authService.EnsureEmployee(ctx, "admin", "admin@example.com", "secret1"))
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	mockRepo.On("GetByUsername", mock.Anything, "admin").Return(nil, repositories.ErrNotFound).Twice()
	mockRepo.On("GetByEmail", mock.Anything, "admin@example.com").Return(nil, repositories.ErrNotFound).Once()
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Role == models.RoleEmployee && u.Username == "admin"
	})).Return(nil).Once()
	require.NoError(t, authService.EnsureEmployee(ctx, "admin", "admin@example.com", "secret1"))
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:       "user-123",
		Username: "testuser",
		Email:    "test@example.com",
		Password: string(hashedPassword),
		Role:     models.RoleMember,
	}

	mockRepo.On("GetByUsername", mock.Anything, user.Username).Return(user, nil).Once()
	token, err := authService.LoginUser(ctx, "testuser", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, user.Username, claims["username"])
	assert.Equal(t, models.RoleMember, claims["role"])
	mockRepo.AssertExpectations(t)

	// wrong password
	mockRepo.On("GetByUsername", mock.Anything, user.Username).Return(user, nil).Once()
	_, err = authService.LoginUser(ctx, "testuser", "wrongpassword")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	// unknown user gets the same answer
	mockRepo.On("GetByUsername", mock.Anything, "nonexistentuser").Return(nil, repositories.ErrNotFound).Once()
	_, err = authService.LoginUser(ctx, "nonexistentuser", "password123")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	authService := services.NewAuthService(new(MockUserRepository), testJWTSecret, time.Hour)

	sign := func(claims jwt.MapClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}

	valid := sign(jwt.MapClaims{
		"user_id":  "user-123",
		"username": "testuser",
		"role":     models.RoleEmployee,
		"exp":      jwt.TimeFunc().Add(time.Hour).Unix(),
	}, testJWTSecret)
	claims, err := authService.ValidateToken(valid)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims["user_id"])
	assert.Equal(t, models.RoleEmployee, claims["role"])

	_, err = authService.ValidateToken("invalid.token.string")
	assert.ErrorContains(t, err, "invalid token")

	wrongSecret := sign(jwt.MapClaims{"user_id": "user-123", "exp": jwt.TimeFunc().Add(time.Hour).Unix()}, "other")
	_, err = authService.ValidateToken(wrongSecret)
	assert.ErrorContains(t, err, "invalid token")

	expired := sign(jwt.MapClaims{"user_id": "user-123", "exp": jwt.TimeFunc().Add(-time.Hour).Unix()}, testJWTSecret)
	_, err = authService.ValidateToken(expired)
	assert.ErrorContains(t, err, "invalid token")

	noSubject := sign(jwt.MapClaims{"username": "x", "exp": jwt.TimeFunc().Add(time.Hour).Unix()}, testJWTSecret)
	_, err = authService.ValidateToken(noSubject)
	assert.ErrorContains(t, err, "missing user_id")
}
