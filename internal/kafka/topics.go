package kafka

// Topic names used as the cross-service wire contract. Defaults only; each
// is overridable through config.
const (
	TopicUserRegistration    = "user-registration"
	TopicPasswordChange      = "password-change"
	TopicCompanySync         = "company-sync"
	TopicUserChangeEvents    = "user-change-events"
	TopicApplicationEvents   = "application-events"
	TopicNotificationEvents  = "notification-events"
	TopicSessionInvalidation = "session-invalidation-events"
	TopicJobEvents           = "job-events"

	TopicUserRegistrationDLT = "user-registration-dlt"
	TopicJobEventDLT         = "job-event-dlt"
)

// DLTFor maps a topic to its dead-letter topic.
func DLTFor(topic string) string {
	switch topic {
	case TopicUserRegistration:
		return TopicUserRegistrationDLT
	case TopicJobEvents:
		return TopicJobEventDLT
	default:
		return topic + "-dlt"
	}
}
