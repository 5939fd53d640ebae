package service

import (
	"errors"
	"strings"

	"github.com/tangerine/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials 表示用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound 表示账号不存在
	ErrUserNotFound = errors.New("user not found")
)

// UserService 负责登录校验与会话用户加载。
type UserService struct {
	db *gorm.DB
}

// NewUserService 构造 UserService。
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// Authenticate 校验用户名与密码。
func (s *UserService) Authenticate(username, password string) (*db.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	var user db.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Get 按 ID 读取用户。
func (s *UserService) Get(id uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// IdentityFor 把账号转换为评论提交使用的身份。显示名为空时回退到用户名。
func IdentityFor(user *db.User) Identity {
	if user == nil {
		return Identity{}
	}
	name := user.FullName()
	if name == "" {
		name = user.Username
	}
	return Identity{
		Authenticated: true,
		UserID:        user.ID,
		DisplayName:   name,
		Email:         user.Email,
	}
}
