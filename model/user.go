package model

type User struct {
	DTO
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	StudentID string `gorm:"index" json:"studentId"`
	Name      string `gorm:"not null" json:"name"`
	Role      string `gorm:"not null;default:'user'" json:"role"`
	IsActive  bool   `gorm:"not null;default:true" json:"isActive"`
}

type RegisterUserInput struct {
	Name      string `validate:"required,min=2,max=100" json:"name"`
	Email     string `validate:"required,email" json:"email"`
	StudentID string `validate:"required,max=50" json:"studentId"`
	Password  string `validate:"required,min=6,max=72" json:"password"`
}

type LoginInput struct {
	Email    string `validate:"required,email" json:"email"`
	Password string `validate:"required" json:"password"`
}
