package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anirudh-tech/IZONE-sub001/internal/auth"
	"github.com/anirudh-tech/IZONE-sub001/internal/config"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/user"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int64
	users map[int64]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*user.User)}
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errs.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.NotFound("user not found")
}

func (r *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return errs.Conflict("username already taken")
		}
	}
	r.seq++
	u.ID = r.seq
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) ListAll(ctx context.Context) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*user.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeUserRepo()
	cfg := &config.JWTConfig{Secret: "test-secret"}
	svc := NewUserService(repo, cfg)

	u, err := svc.Register(context.Background(), "ann", "s3cret", "ann@example.com")
	require.NoError(t, err)
	// 密码只存散列值
	assert.NotEqual(t, "s3cret", u.Password)

	token, err := svc.Login(context.Background(), "ann", "s3cret")
	require.NoError(t, err)

	claims, err := auth.ParseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "ann", claims.Username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, &config.JWTConfig{Secret: "test-secret"})

	_, err := svc.Register(context.Background(), "ann", "s3cret", "ann@example.com")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "ann", "wrong")
	assert.Equal(t, errs.KindUnauthorized, errs.KindOf(err))

	// 用户不存在与密码错误返回同一个错误，不泄露账号是否注册
	_, err = svc.Login(context.Background(), "nobody", "s3cret")
	assert.Equal(t, errs.KindUnauthorized, errs.KindOf(err))
}

func TestRegisterValidation(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, &config.JWTConfig{Secret: "test-secret"})

	_, err := svc.Register(context.Background(), "", "pw", "")
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = svc.Register(context.Background(), "ann", "pw", "")
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), "ann", "pw2", "")
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))
}
