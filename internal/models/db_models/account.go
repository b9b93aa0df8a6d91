package db_models

type Account struct {
	BaseModel
	Name         string
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:16;not null;default:user"`
	Plans        []Plan `gorm:"foreignKey:AccountID"`
}
