package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"freightdesk/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*model.User
	tokens map[string]*model.RefreshToken
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users:  make(map[uuid.UUID]*model.User),
		tokens: make(map[string]*model.RefreshToken),
	}
}

func (r *stubUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[parsed]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, user := range r.users {
		out = append(out, *user)
	}
	return out, int64(len(out)), nil
}

func (r *stubUserRepo) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *stubUserRepo) Delete(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return gorm.ErrRecordNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, parsed)
	return nil
}

func (r *stubUserRepo) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.Token] = token
	return nil
}

func (r *stubUserRepo) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return stored, nil
}

func (r *stubUserRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *stubUserRepo) DeleteRefreshTokensByUser(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, token := range r.tokens {
		if token.UserID == userID {
			delete(r.tokens, key)
		}
	}
	return nil
}

func seedUser(t *testing.T, repo *stubUserRepo, email, password string) *model.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{
		ID:       uuid.New(),
		Username: "agent-" + uuid.NewString()[:8],
		Email:    email,
		Phone:    "0600000000",
		Password: string(hashed),
		Role:     "staff",
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestLoginReturnsTokenPair(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo)
	seedUser(t, repo, "aissatou@freightdesk.test", "secret123")

	res, err := svc.Login(context.Background(), LoginUserRequest{
		Email: "aissatou@freightdesk.test", Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.NotEmpty(t, res.RefreshToken)

	// The refresh token is persisted so it can be exchanged later.
	stored, err := repo.GetRefreshToken(context.Background(), res.RefreshToken)
	require.NoError(t, err)
	assert.True(t, stored.ExpiresAt.After(time.Now()))
}

func TestRefreshTokenRotates(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo)
	ctx := context.Background()
	seedUser(t, repo, "mamadou@freightdesk.test", "secret123")

	first, err := svc.Login(ctx, LoginUserRequest{
		Email: "mamadou@freightdesk.test", Password: "secret123",
	})
	require.NoError(t, err)

	second, err := svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, second.Token)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The exchanged token is single use.
	_, err = svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: first.RefreshToken})
	assert.Error(t, err)

	// The rotated token still works.
	_, err = svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: second.RefreshToken})
	assert.NoError(t, err)
}

func TestRefreshTokenExpired(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo)
	ctx := context.Background()
	user := seedUser(t, repo, "fatou@freightdesk.test", "secret123")

	expired := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, repo.CreateRefreshToken(ctx, expired))

	_, err := svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: expired.Token})
	assert.Error(t, err)

	// Expired tokens are purged on sight.
	_, err = repo.GetRefreshToken(ctx, expired.Token)
	assert.Error(t, err)
}

func TestRefreshTokenUnknown(t *testing.T) {
	svc := NewUserService(newStubUserRepo())

	_, err := svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: uuid.NewString()})
	assert.Error(t, err)
}

func TestDeleteUserRevokesRefreshTokens(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo)
	ctx := context.Background()
	user := seedUser(t, repo, "ousmane@freightdesk.test", "secret123")

	res, err := svc.Login(ctx, LoginUserRequest{
		Email: "ousmane@freightdesk.test", Password: "secret123",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, user.ID.String()))

	_, err = svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: res.RefreshToken})
	assert.Error(t, err)
}
