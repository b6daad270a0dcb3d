package events

import (
	"encoding/json"
	"time"
)

// Event type discriminators carried in Header.EventType.
const (
	TypeUserRegistered      = "USER_REGISTERED"
	TypeHRApproved          = "HR_APPROVED"
	TypeHRManagerApproved   = "HR_MANAGER_APPROVED"
	TypePasswordChanged     = "PASSWORD_CHANGED"
	TypeCompanyCreated      = "COMPANY_CREATED"
	TypeCompanyUpdated      = "COMPANY_UPDATED"
	TypeUserCreated         = "USER_CREATED"
	TypeUserUpdated         = "USER_UPDATED"
	TypeUserDeleted         = "USER_DELETED"
	TypeUserBlocked         = "USER_BLOCKED"
	TypeUserUnblocked       = "USER_UNBLOCKED"
	TypeApplicationCreated  = "APPLICATION_CREATED"
	TypeJobStatsUpdated     = "JOB_STATS_UPDATED"
	TypeSessionInvalidation = "SESSION_INVALIDATION"
)

// UserRegistrationEvent announces an approved registration to downstream
// services. Also reused for HR approval status updates.
type UserRegistrationEvent struct {
	Header
	UserData UserData `json:"userData"`
}

type UserData struct {
	UserID       string       `json:"userId"`
	Username     string       `json:"username"`
	FullName     string       `json:"fullName,omitempty"`
	Email        string       `json:"email"`
	PhoneNumber  string       `json:"phoneNumber,omitempty"`
	PasswordHash string       `json:"passwordHash,omitempty"`
	Role         string       `json:"role"`
	Status       string       `json:"status,omitempty"`
	Company      *CompanyData `json:"company,omitempty"`
}

// PasswordChangeEvent syncs a credential hash from the auth store to the
// user store. The payload always carries the newest hash.
type PasswordChangeEvent struct {
	Header
	PasswordData PasswordData `json:"passwordData"`
}

type PasswordData struct {
	UserID            string    `json:"userId"`
	Username          string    `json:"username"`
	Email             string    `json:"email,omitempty"`
	NewPasswordHash   string    `json:"newPasswordHash"`
	PasswordChangedAt time.Time `json:"passwordChangedAt"`
	ChangeReason      string    `json:"changeReason,omitempty"` // USER_CHANGE or PASSWORD_RESET
}

// CompanySyncEvent propagates company creation/updates to the job service.
type CompanySyncEvent struct {
	Header
	Company CompanyData `json:"company"`
}

type CompanyData struct {
	CompanyID   string `json:"companyId"`
	Name        string `json:"name"`
	LogoURL     string `json:"logoUrl,omitempty"`
	WebsiteURL  string `json:"websiteUrl,omitempty"`
	Description string `json:"description,omitempty"`
	Address     string `json:"address,omitempty"`
	Size        string `json:"size,omitempty"`
}

// UserChangeEvent feeds the search-index mirror. Version is the user
// aggregate version; consumers must drop stale versions.
type UserChangeEvent struct {
	Header
	UserID  string        `json:"userId"`
	Version int64         `json:"version"`
	Data    UserEventData `json:"data"`
}

type UserEventData struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	FullName    string `json:"fullName,omitempty"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	UserRole    string `json:"userRole,omitempty"`
	UserStatus  string `json:"userStatus,omitempty"`
	IsBlocked   bool   `json:"isBlocked"`
	IsDeleted   bool   `json:"isDeleted"`
	Version     int64  `json:"version"`
}

// ApplicationCreatedEvent fans out a submitted application to the
// notification service.
type ApplicationCreatedEvent struct {
	Header
	Data ApplicationData `json:"data"`
}

type ApplicationData struct {
	ApplicationID  string    `json:"applicationId"`
	Username       string    `json:"username"`
	CandidateEmail string    `json:"candidateEmail,omitempty"`
	JobID          string    `json:"jobId"`
	CvFileURL      string    `json:"cvFileUrl,omitempty"`
	Status         string    `json:"status"`
	JobTitle       string    `json:"jobTitle,omitempty"`
	CompanyName    string    `json:"companyName,omitempty"`
	AppliedAt      time.Time `json:"appliedAt"`
	HrUsername     string    `json:"hrUsername,omitempty"`
	CandidateName  string    `json:"candidateName,omitempty"`
}

// JobStatsUpdateEvent nudges the job aggregate's application counters.
type JobStatsUpdateEvent struct {
	Header
	JobID string `json:"jobId"`
	Delta int    `json:"delta"`
}

// NotificationEvent is the generic inbound shape routed by the notification
// strategy chain. SendEmail defaults to true when absent, in-app to false.
type NotificationEvent struct {
	Header
	RecipientEmail   string         `json:"recipientEmail"`
	RecipientUserID  string         `json:"recipientUserId,omitempty"`
	RecipientRole    string         `json:"recipientRole,omitempty"`
	Subject          string         `json:"subject,omitempty"`
	Content          string         `json:"content,omitempty"`
	TemplateType     string         `json:"templateType,omitempty"`
	NotificationType string         `json:"notificationType,omitempty"`
	SendEmail        *bool          `json:"sendEmail,omitempty"`
	CreateInApp      *bool          `json:"createInAppNotification,omitempty"`
	ActionURL        string         `json:"actionUrl,omitempty"`
	ReferenceID      string         `json:"referenceId,omitempty"`
	ReferenceType    string         `json:"referenceType,omitempty"`
	SourceService    string         `json:"sourceService,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// WantsEmail reports the email flag with its default applied.
func (e NotificationEvent) WantsEmail() bool {
	return e.SendEmail == nil || *e.SendEmail
}

// WantsInApp reports the in-app flag with its default applied.
func (e NotificationEvent) WantsInApp() bool {
	return e.CreateInApp != nil && *e.CreateInApp
}

// SessionInvalidationEvent tells the auth service to drop a user's sessions.
type SessionInvalidationEvent struct {
	Header
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId,omitempty"` // empty means all sessions
	Reason    string `json:"reason,omitempty"`
}

// DeadLetterRecord wraps an envelope a consumer could not process after
// exhausting retries, plus enough context to replay it.
type DeadLetterRecord struct {
	EventID    string          `json:"eventId,omitempty"`
	EventType  string          `json:"eventType,omitempty"`
	Topic      string          `json:"topic"`
	Partition  int             `json:"partition"`
	Offset     int64           `json:"offset"`
	Key        string          `json:"key"`
	Value      json.RawMessage `json:"value"`
	Reason     string          `json:"reason"`
	RetryCount int             `json:"retryCount"`
	FailedAt   time.Time       `json:"failedAt"`
}
