package enums

import "fmt"

// NotificationType is the closed set of notification kinds emitted by the backend.
type NotificationType string

const (
	NotificationTypeWelcome              NotificationType = "WELCOME"
	NotificationTypeNewComment           NotificationType = "NEW_COMMENT"
	NotificationTypeNewReview            NotificationType = "NEW_REVIEW"
	NotificationTypeRestaurantApproved   NotificationType = "RESTAURANT_APPROVED"
	NotificationTypeRestaurantSubmission NotificationType = "RESTAURANT_SUBMISSION"
	NotificationTypeRestaurantRejected   NotificationType = "RESTAURANT_REJECTED"
	NotificationTypeSystemAlert          NotificationType = "SYSTEM_ALERT"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeWelcome,
	NotificationTypeNewComment,
	NotificationTypeNewReview,
	NotificationTypeRestaurantApproved,
	NotificationTypeRestaurantSubmission,
	NotificationTypeRestaurantRejected,
	NotificationTypeSystemAlert,
}

var notificationIcons = map[NotificationType]string{
	NotificationTypeWelcome:              "👋",
	NotificationTypeNewComment:           "💬",
	NotificationTypeNewReview:            "⭐",
	NotificationTypeRestaurantApproved:   "✅",
	NotificationTypeRestaurantSubmission: "📝",
	NotificationTypeRestaurantRejected:   "❌",
	NotificationTypeSystemAlert:          "⚠️",
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// Icon returns the glyph shown next to a notification of this type.
func (n NotificationType) Icon() string {
	if icon, ok := notificationIcons[n]; ok {
		return icon
	}
	return "🔔"
}

// NotificationTypeValues lists the canonical values, in declaration order.
func NotificationTypeValues() []string {
	values := make([]string, 0, len(validNotificationTypes))
	for _, candidate := range validNotificationTypes {
		values = append(values, string(candidate))
	}
	return values
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
