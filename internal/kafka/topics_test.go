package kafka

import "testing"

func TestDLTFor(t *testing.T) {
	cases := []struct {
		topic string
		want  string
	}{
		{TopicUserRegistration, "user-registration-dlt"},
		{TopicJobEvents, "job-event-dlt"},
		{TopicPasswordChange, "password-change-dlt"},
		{TopicNotificationEvents, "notification-events-dlt"},
		{"custom-topic", "custom-topic-dlt"},
	}
	for _, tc := range cases {
		if got := DLTFor(tc.topic); got != tc.want {
			t.Fatalf("DLTFor(%s) = %s, want %s", tc.topic, got, tc.want)
		}
	}
}
