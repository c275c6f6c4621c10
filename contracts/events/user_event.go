package events

import "fmt"

const SourceUserEvents = "user-events"

type UserEvent struct {
	UserID int64  `json:"user_id"`
	Action string `json:"action"`
	PageID int64  `json:"page_id"`
}

type rawUserEvent struct {
	UserID *integer `json:"user_id" validate:"required"`
	Action *text    `json:"action" validate:"required"`
	PageID *integer `json:"page_id" validate:"required"`
}

func DecodeUserEvent(raw []byte) (UserEvent, error) {
	var e rawUserEvent
	if err := decodeInto(raw, &e); err != nil {
		return UserEvent{}, fmt.Errorf("decode user event: %w", err)
	}

	return UserEvent{
		UserID: int64(*e.UserID),
		Action: string(*e.Action),
		PageID: int64(*e.PageID),
	}, nil
}
