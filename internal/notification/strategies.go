package notification

import (
	"context"
	"log"
	"strings"

	"workfit-event-service-golang/internal/events"
	"workfit-event-service-golang/internal/store"
)

// EmailSender delivers one notification over email.
type EmailSender interface {
	Send(ctx context.Context, ev events.NotificationEvent) error
}

// Persistence creates in-app records and email logs, keyed by eventId.
type Persistence interface {
	CreateNotification(ctx context.Context, ev events.NotificationEvent) (*store.Notification, error)
	SaveEmailLog(ctx context.Context, ev events.NotificationEvent, sent bool, reason string) error
}

// RateLimiter gates outbound email volume per recipient.
type RateLimiter interface {
	Allow(ctx context.Context, key string, maxRequests, windowSeconds int) bool
}

// PreferenceSource answers a recipient's channel preferences.
type PreferenceSource interface {
	Settings(ctx context.Context, email string) store.NotificationSettings
}

// RealtimePusher pushes an in-app notification over the live channel to any
// connected client. Best-effort; no error surface.
type RealtimePusher interface {
	Push(email string, n *store.Notification)
}

const (
	applicationEmailLimit  = 10
	applicationEmailWindow = 3600
)

// CriticalStrategy delivers security notifications (password changes,
// lockouts). Forces both channels and bypasses rate limiting: security
// events must land.
type CriticalStrategy struct {
	Email    EmailSender
	Store    Persistence
	Realtime RealtimePusher
}

func (s *CriticalStrategy) Name() string  { return "CriticalStrategy" }
func (s *CriticalStrategy) Priority() int { return 1 }

func (s *CriticalStrategy) CanHandle(ev events.NotificationEvent) bool {
	t := ev.EventType
	return strings.Contains(t, "PASSWORD_CHANGED") ||
		strings.Contains(t, "SECURITY_ALERT") ||
		strings.Contains(t, "ACCOUNT_LOCKED") ||
		strings.Contains(t, "SUSPICIOUS_LOGIN") ||
		strings.Contains(t, "2FA_ENABLED") ||
		strings.Contains(t, "2FA_DISABLED")
}

func (s *CriticalStrategy) Process(ctx context.Context, ev events.NotificationEvent) (bool, error) {
	log.Printf("[Notify] CRITICAL %s for %s", ev.EventType, ev.RecipientEmail)

	if !ev.WantsEmail() {
		log.Printf("[Notify] sendEmail=false but forcing email for critical event %s", ev.EventID)
	}

	emailSent := false
	if err := s.Email.Send(ctx, ev); err != nil {
		log.Printf("[Notify] critical email failed for %s: %v", ev.RecipientEmail, err)
	} else {
		emailSent = true
	}

	inAppCreated := false
	if n, err := s.Store.CreateNotification(ctx, ev); err != nil {
		log.Printf("[Notify] critical in-app create failed: %v", err)
	} else {
		inAppCreated = true
		s.Realtime.Push(ev.RecipientEmail, n)
	}

	reason := ""
	if !emailSent {
		reason = "delivery_failed"
	}
	if err := s.Store.SaveEmailLog(ctx, ev, emailSent, reason); err != nil {
		log.Printf("[Notify] email log failed: %v", err)
	}

	return emailSent || inAppCreated, nil
}

// TransactionalEmailStrategy delivers account-flow mail routed by template
// type (OTP codes, password resets). Email-only: no in-app record.
type TransactionalEmailStrategy struct {
	Email EmailSender
	Store Persistence
}

func (s *TransactionalEmailStrategy) Name() string  { return "TransactionalEmailStrategy" }
func (s *TransactionalEmailStrategy) Priority() int { return 10 }

func (s *TransactionalEmailStrategy) CanHandle(ev events.NotificationEvent) bool {
	switch ev.TemplateType {
	case "OTP_VERIFICATION", "PASSWORD_RESET", "FORGOT_PASSWORD":
		return true
	}
	return false
}

func (s *TransactionalEmailStrategy) Process(ctx context.Context, ev events.NotificationEvent) (bool, error) {
	log.Printf("[Notify] transactional %s for %s", ev.TemplateType, ev.RecipientEmail)

	if err := s.Email.Send(ctx, ev); err != nil {
		log.Printf("[Notify] transactional email failed for %s: %v", ev.RecipientEmail, err)
		if lerr := s.Store.SaveEmailLog(ctx, ev, false, "delivery_failed"); lerr != nil {
			log.Printf("[Notify] email log failed: %v", lerr)
		}
		return false, nil
	}
	if err := s.Store.SaveEmailLog(ctx, ev, true, ""); err != nil {
		log.Printf("[Notify] email log failed: %v", err)
	}
	return true, nil
}

// AccountApprovalStrategy handles registration approval notifications and
// delivers the welcome email plus an in-app record.
type AccountApprovalStrategy struct {
	Email    EmailSender
	Store    Persistence
	Realtime RealtimePusher
}

func (s *AccountApprovalStrategy) Name() string  { return "AccountApprovalStrategy" }
func (s *AccountApprovalStrategy) Priority() int { return 20 }

func (s *AccountApprovalStrategy) CanHandle(ev events.NotificationEvent) bool {
	t := ev.EventType
	return strings.Contains(t, "ACCOUNT_APPROVED") ||
		strings.Contains(t, "HR_APPROVED") ||
		strings.Contains(t, "HR_MANAGER_APPROVED") ||
		strings.Contains(t, "USER_REGISTERED")
}

func (s *AccountApprovalStrategy) Process(ctx context.Context, ev events.NotificationEvent) (bool, error) {
	log.Printf("[Notify] approval %s for %s", ev.EventType, ev.RecipientEmail)

	emailSent := false
	if err := s.Email.Send(ctx, ev); err != nil {
		s.logEmailFailure(ctx, ev, err)
	} else {
		emailSent = true
		if err := s.Store.SaveEmailLog(ctx, ev, true, ""); err != nil {
			log.Printf("[Notify] email log failed: %v", err)
		}
	}

	inAppCreated := false
	if n, err := s.Store.CreateNotification(ctx, ev); err != nil {
		log.Printf("[Notify] approval in-app create failed: %v", err)
	} else {
		inAppCreated = true
		s.Realtime.Push(ev.RecipientEmail, n)
	}

	return emailSent || inAppCreated, nil
}

func (s *AccountApprovalStrategy) logEmailFailure(ctx context.Context, ev events.NotificationEvent, cause error) {
	log.Printf("[Notify] approval email failed for %s: %v", ev.RecipientEmail, cause)
	if err := s.Store.SaveEmailLog(ctx, ev, false, "delivery_failed"); err != nil {
		log.Printf("[Notify] email log failed: %v", err)
	}
}

// ApplicationStrategy handles application lifecycle notifications
// (submitted, viewed, status changed) with per-recipient email throttling.
type ApplicationStrategy struct {
	Email    EmailSender
	Store    Persistence
	Limiter  RateLimiter
	Realtime RealtimePusher
}

func (s *ApplicationStrategy) Name() string  { return "ApplicationStrategy" }
func (s *ApplicationStrategy) Priority() int { return 50 }

func (s *ApplicationStrategy) CanHandle(ev events.NotificationEvent) bool {
	t := ev.NotificationType
	return strings.HasPrefix(t, "application_") || strings.HasPrefix(t, "APPLICATION_")
}

func (s *ApplicationStrategy) Process(ctx context.Context, ev events.NotificationEvent) (bool, error) {
	log.Printf("[Notify] application %s for %s", ev.NotificationType, ev.RecipientEmail)

	limitKey := "app_notif:" + ev.RecipientEmail
	if !s.Limiter.Allow(ctx, limitKey, applicationEmailLimit, applicationEmailWindow) {
		log.Printf("[Notify] rate limit exceeded for application notifications: %s", ev.RecipientEmail)
		// Keep the in-app record; only the email is throttled.
		if n, err := s.Store.CreateNotification(ctx, ev); err != nil {
			log.Printf("[Notify] in-app create failed: %v", err)
		} else {
			s.Realtime.Push(ev.RecipientEmail, n)
		}
		return false, nil
	}

	emailSent := false
	if ev.WantsEmail() {
		if err := s.Email.Send(ctx, ev); err != nil {
			log.Printf("[Notify] application email failed for %s: %v", ev.RecipientEmail, err)
		} else {
			emailSent = true
			if err := s.Store.SaveEmailLog(ctx, ev, true, ""); err != nil {
				log.Printf("[Notify] email log failed: %v", err)
			}
		}
	}

	inAppCreated := false
	if ev.WantsInApp() {
		if n, err := s.Store.CreateNotification(ctx, ev); err != nil {
			log.Printf("[Notify] in-app create failed: %v", err)
		} else {
			inAppCreated = true
			s.Realtime.Push(ev.RecipientEmail, n)
		}
	}

	return emailSent || inAppCreated, nil
}

// DefaultStrategy is the fallback: it matches everything and follows the
// event flags plus the recipient's channel preferences.
type DefaultStrategy struct {
	Email       EmailSender
	Store       Persistence
	Preferences PreferenceSource
	Realtime    RealtimePusher
}

func (s *DefaultStrategy) Name() string  { return "DefaultStrategy" }
func (s *DefaultStrategy) Priority() int { return 1000 }

func (s *DefaultStrategy) CanHandle(events.NotificationEvent) bool { return true }

func (s *DefaultStrategy) Process(ctx context.Context, ev events.NotificationEvent) (bool, error) {
	log.Printf("[Notify] default route %s for %s", ev.EventType, ev.RecipientEmail)

	settings := s.Preferences.Settings(ctx, ev.RecipientEmail)

	emailSent := false
	if ev.WantsEmail() {
		if settings.EmailEnabled {
			if err := s.Email.Send(ctx, ev); err != nil {
				log.Printf("[Notify] email failed for %s: %v", ev.RecipientEmail, err)
				if lerr := s.Store.SaveEmailLog(ctx, ev, false, "delivery_failed"); lerr != nil {
					log.Printf("[Notify] email log failed: %v", lerr)
				}
			} else {
				emailSent = true
				if lerr := s.Store.SaveEmailLog(ctx, ev, true, ""); lerr != nil {
					log.Printf("[Notify] email log failed: %v", lerr)
				}
			}
		} else {
			log.Printf("[Notify] skipping email for %s - disabled by user", ev.RecipientEmail)
			if lerr := s.Store.SaveEmailLog(ctx, ev, false, "user_disabled_email_notifications"); lerr != nil {
				log.Printf("[Notify] email log failed: %v", lerr)
			}
		}
	}

	inAppCreated := false
	if ev.WantsInApp() {
		if settings.PushEnabled {
			if n, err := s.Store.CreateNotification(ctx, ev); err != nil {
				log.Printf("[Notify] in-app create failed: %v", err)
			} else {
				inAppCreated = true
				s.Realtime.Push(ev.RecipientEmail, n)
			}
		} else {
			log.Printf("[Notify] skipping in-app for %s - disabled by user", ev.RecipientEmail)
		}
	}

	return emailSent || inAppCreated, nil
}
