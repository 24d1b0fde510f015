package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/anirudh-tech/IZONE-sub001/internal/auth"
	"github.com/anirudh-tech/IZONE-sub001/internal/config"
	"github.com/anirudh-tech/IZONE-sub001/internal/datamodels/user"
	"github.com/anirudh-tech/IZONE-sub001/internal/errs"
)

// UserService 用户注册/登录
type UserService struct {
	repo user.Repository
	jwt  *config.JWTConfig
}

// NewUserService 创建用户服务
func NewUserService(repo user.Repository, jwt *config.JWTConfig) *UserService {
	return &UserService{repo: repo, jwt: jwt}
}

func hashPassword(raw, salt string) string {
	h := sha256.Sum256([]byte(raw + salt))
	return hex.EncodeToString(h[:])
}

// Register 注册
func (s *UserService) Register(ctx context.Context, username, password, email string) (*user.User, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return nil, errs.Validation("username and password are required")
	}
	u := &user.User{
		Username: username,
		Email:    email,
		Salt:     "izone", // 简化实现，真实业务请使用随机盐
	}
	u.Password = hashPassword(password, u.Salt)
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login 登录并返回 JWT
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errs.KindOf(err) == errs.KindNotFound {
			return "", errs.Unauthorized("invalid username or password")
		}
		return "", err
	}
	if hashPassword(password, u.Salt) != u.Password {
		return "", errs.Unauthorized("invalid username or password")
	}
	token, err := auth.GenerateToken(s.jwt, u.ID, u.Username, u.Email)
	if err != nil {
		return "", errs.Internal("sign token", err)
	}
	return token, nil
}

// GetByID 查询用户
func (s *UserService) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return s.repo.GetByID(ctx, id)
}

// ListAll 后台用户列表
func (s *UserService) ListAll(ctx context.Context) ([]*user.User, error) {
	return s.repo.ListAll(ctx)
}
