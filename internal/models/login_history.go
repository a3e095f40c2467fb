package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
)

// LoginHistory records one login attempt.
type LoginHistory struct {
	BaseModel
	AccountID   uuid.UUID `gorm:"type:uuid;not null;index" json:"account_id"`
	IPAddress   string    `json:"ip_address"`
	UserAgent   string    `json:"user_agent"`
	Browser     string    `json:"browser"`
	OS          string    `json:"os"`
	DeviceType  string    `gorm:"type:varchar(16)" json:"device_type"`
	Location    string    `json:"location"`
	LoginAt     time.Time `gorm:"index" json:"login_at"`
	Success     bool      `json:"success"`
	RequiresOTP bool      `json:"requires_otp"`
	OTPVerified bool      `json:"otp_verified"`
}
