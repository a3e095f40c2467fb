package models

// Account is a registered user identity. Credentials live with the external
// identity provider; only the profile is stored here.
type Account struct {
	BaseModel
	Username            string `json:"username"`
	DisplayName         string `json:"display_name"`
	Avatar              string `json:"avatar"`
	Email               string `gorm:"uniqueIndex" json:"email"`
	Phone               string `gorm:"index" json:"phone"`
	Bio                 string `json:"bio"`
	Location            string `json:"location"`
	Website             string `json:"website"`
	Language            string `gorm:"type:varchar(8)" json:"language"`
	NotificationEnabled bool   `json:"notification_enabled"`
}
