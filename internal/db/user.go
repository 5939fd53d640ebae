package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了站点账号。IsSuperuser 决定能否进入评论管理。
type User struct {
	gorm.Model
	Username    string `gorm:"unique;not null"`
	Password    string `gorm:"not null" json:"-"`
	FirstName   string `gorm:"size:150"`
	LastName    string `gorm:"size:150"`
	Email       string
	IsSuperuser bool
}

// FullName 返回 "名 姓"，两者都为空时返回空串。
func (u *User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// CheckPassword 比较明文密码与 bcrypt 哈希。
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// UserSeed 是 EnsureUser 的输入。
type UserSeed struct {
	Username    string
	Password    string
	FirstName   string
	LastName    string
	Email       string
	IsSuperuser bool
}

// EnsureUser 存在性检查：若用户名与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的用户。
func EnsureUser(gdb *gorm.DB, seed UserSeed) error {
	trimmedUser := strings.TrimSpace(seed.Username)
	trimmedPassword := strings.TrimSpace(seed.Password)
	if trimmedUser == "" || trimmedPassword == "" {
		return nil
	}

	if gdb == nil {
		return errors.New("database not initialized")
	}

	var existing User
	err := gdb.Where("username = ?", trimmedUser).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return gdb.Create(&User{
		Username:    trimmedUser,
		Password:    string(hashed),
		FirstName:   strings.TrimSpace(seed.FirstName),
		LastName:    strings.TrimSpace(seed.LastName),
		Email:       strings.TrimSpace(seed.Email),
		IsSuperuser: seed.IsSuperuser,
	}).Error
}
