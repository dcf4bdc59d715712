package model

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleAdmin   Role = "ADMIN"
)

// Caller идентичность вызывающего, выданная внешней аутентификацией
type Caller struct {
	UserID string `json:"user_id" validate:"required"`
	Role   Role   `json:"role" validate:"required,oneof=STUDENT ADMIN"`
}

// IsPrivileged администратор может одобрять, отклонять и создавать подтверждённые брони
func (c Caller) IsPrivileged() bool {
	return c.Role == RoleAdmin
}

// Owns true если бронирование создано этим пользователем
func (c Caller) Owns(b *Booking) bool {
	return b != nil && b.UserID == c.UserID
}
