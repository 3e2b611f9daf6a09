package notifications

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/angelmondragon/forkfinderz-realtime/pkg/enums"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/types"
	"github.com/go-playground/validator/v10"
)

var reviewTargetPattern = regexp.MustCompile(`/reviews/(\d+)`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("notification_type", func(fl validator.FieldLevel) bool {
		return enums.NotificationType(fl.Field().String()).IsValid()
	})
	return v
}

// Notification is a single user-facing notification as pushed over the
// realtime channel and returned by the history endpoint.
type Notification struct {
	ID        int64                  `json:"notificationId" validate:"required,gt=0"`
	Title     string                 `json:"title" validate:"required"`
	Message   string                 `json:"message"`
	Type      enums.NotificationType `json:"type" validate:"required,notification_type"`
	TargetURL *string                `json:"targetUrl"`
	IsRead    bool                   `json:"isRead"`
	CreatedAt types.Timestamp        `json:"createdAt"`
}

// UnmarshalJSON accepts `id` as an alias of `notificationId`.
func (n *Notification) UnmarshalJSON(data []byte) error {
	type plain Notification
	var wire struct {
		plain
		AltID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*n = Notification(wire.plain)
	if n.ID == 0 {
		n.ID = wire.AltID
	}
	return nil
}

// Validate checks the payload against the accepted schema.
func (n Notification) Validate() error {
	if err := validate.Struct(n); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			details := map[string]string{}
			for _, fieldErr := range errs {
				details[fieldErr.Field()] = fieldErr.Tag()
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification payload").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification payload")
	}
	return nil
}

// Decode parses and validates a raw frame body.
func Decode(body []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return Notification{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode notification payload")
	}
	if err := n.Validate(); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// ReviewRef is a partial review carrying only the identity extracted from a
// NEW_REVIEW notification.
type ReviewRef struct {
	ID             string `json:"id"`
	NotificationID int64  `json:"notificationId"`
}

// ExtractReviewRef derives a review reference from a NEW_REVIEW notification.
// Any other type, or a target URL without a numeric review segment, yields false.
func ExtractReviewRef(n Notification) (ReviewRef, bool) {
	if n.Type != enums.NotificationTypeNewReview || n.TargetURL == nil {
		return ReviewRef{}, false
	}
	match := reviewTargetPattern.FindStringSubmatch(*n.TargetURL)
	if len(match) < 2 {
		return ReviewRef{}, false
	}
	return ReviewRef{ID: match[1], NotificationID: n.ID}, true
}

func (n Notification) String() string {
	return fmt.Sprintf("%s#%d %q", n.Type, n.ID, n.Title)
}
