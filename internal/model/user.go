package model

type UserRole string

const (
	Staff      UserRole = "staff"
	Supervisor UserRole = "supervisor"
	Admin      UserRole = "admin"
)

// User 护理人员，由外部身份令牌的 subject 唯一标识
// swagger:model User
type User struct {
	UUIDBase
	Subject string   `gorm:"size:128;uniqueIndex;not null" json:"subject"`
	Name    string   `gorm:"size:100;not null" json:"name"`
	Email   string   `gorm:"size:100;index" json:"email"`
	Role    UserRole `gorm:"type:varchar(20);default:'staff'" json:"role"`
}

func (User) TableName() string {
	return "users"
}
