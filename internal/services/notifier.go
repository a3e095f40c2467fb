package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/example/twiller/internal/otp"
)

// OTPSender delivers one-time passcodes out of band.
type OTPSender interface {
	SendOTP(ctx context.Context, recipient string, channel otp.Channel, purpose, code string) error
}

// LogSender writes passcode deliveries to the application log. It stands in
// for the mail and SMS gateways. The code itself is only logged, at debug
// level, when revealCode is set.
type LogSender struct {
	logger     *zap.Logger
	revealCode bool
}

func NewLogSender(logger *zap.Logger, revealCode bool) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger.Named("otp-delivery"), revealCode: revealCode}
}

func (s *LogSender) SendOTP(_ context.Context, recipient string, channel otp.Channel, purpose, code string) error {
	fields := []zap.Field{
		zap.String("recipient", recipient),
		zap.String("channel", string(channel)),
		zap.String("subject", PurposeTitle(purpose)+" verification"),
	}
	s.logger.Info("passcode issued", fields...)
	if s.revealCode {
		s.logger.Debug("passcode", append(fields, zap.String("code", code))...)
	}
	return nil
}

// PurposeTitle turns "audio-upload" into "Audio Upload".
func PurposeTitle(purpose string) string {
	return cases.Title(language.English).String(strings.NewReplacer("-", " ", "_", " ", ":", " ").Replace(purpose))
}
