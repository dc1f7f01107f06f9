package authinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/Abraxas-365/jobgrid/pkg/logx"
)

// LogxAuditService implements auth.AuditService using structured logx logging.
type LogxAuditService struct {
	now func() time.Time
}

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{now: time.Now}
}

func (s *LogxAuditService) LogLoginAttempt(ctx context.Context, subject string, method string, success bool, ip string, userAgent string) {
	entry := logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "login_attempt",
		"subject":     subject,
		"method":      method,
		"success":     success,
		"ip":          ip,
		"user_agent":  userAgent,
		"timestamp":   s.now(),
	})
	if success {
		entry.Info("Audit: login attempt")
		return
	}
	entry.Warn("Audit: login attempt")
}

func (s *LogxAuditService) LogLogout(ctx context.Context, ip string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "logout",
		"ip":          ip,
		"timestamp":   s.now(),
	}).Info("Audit: logout")
}

func (s *LogxAuditService) LogOTPRequested(ctx context.Context, email string, flow string, ip string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "otp_requested",
		"contact":     email,
		"flow":        flow,
		"ip":          ip,
		"timestamp":   s.now(),
	}).Info("Audit: OTP requested")
}

func (s *LogxAuditService) LogOTPVerification(ctx context.Context, email string, success bool, ip string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "otp_verification",
		"contact":     email,
		"success":     success,
		"ip":          ip,
		"timestamp":   s.now(),
	}).Info("Audit: OTP verification")
}

func (s *LogxAuditService) LogAccountCreated(ctx context.Context, userID kernel.UserID, method string, ip string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "account_created",
		"user_id":     userID,
		"method":      method,
		"ip":          ip,
		"timestamp":   s.now(),
	}).Info("Audit: account created")
}

func (s *LogxAuditService) LogProfileUpdated(ctx context.Context, userID kernel.UserID, method string) {
	logx.WithContext(ctx).WithFields(logx.Fields{
		"audit_event": "profile_updated",
		"user_id":     userID,
		"method":      method,
		"timestamp":   s.now(),
	}).Info("Audit: profile updated")
}
