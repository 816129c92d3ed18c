package models

import "time"

// User represents a storefront account.
type User struct {
	ID                   string     `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	Name                 string     `json:"name" gorm:"type:varchar(100)" bson:"name" validate:"required,max=100"`
	Username             string     `json:"username" gorm:"uniqueIndex;type:varchar(20)" bson:"username" validate:"required,min=3,max=20,alphanumunderscore"`
	Email                string     `json:"email" gorm:"uniqueIndex;type:varchar(255)" bson:"email" validate:"required,email"`
	Password             string     `json:"-" gorm:"type:varchar(255)" bson:"password"`
	IsAdmin              bool       `json:"isAdmin" bson:"isAdmin"`
	ResetPasswordToken   string     `json:"-" gorm:"index;type:varchar(64)" bson:"resetPasswordToken,omitempty"`
	ResetPasswordExpires *time.Time `json:"-" bson:"resetPasswordExpires,omitempty"`
	CreatedAt            time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// PublicUser is the subset of a user returned alongside a token.
type PublicUser struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Public strips credentials and bookkeeping from u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
	}
}
