package domain

import "time"

type OperationType string

const (
	OperationLogin         OperationType = "login"
	OperationLogout        OperationType = "logout"
	OperationCreateUser    OperationType = "create_user"
	OperationUpdateUser    OperationType = "update_user"
	OperationDeleteUser    OperationType = "delete_user"
	OperationCreateEvent   OperationType = "create_event"
	OperationUpdateEvent   OperationType = "update_event"
	OperationDeleteEvent   OperationType = "delete_event"
	OperationCreateHoliday OperationType = "create_holiday"
	OperationDeleteHoliday OperationType = "delete_holiday"
)

type OperationLog struct {
	ID            int64         `json:"id"`
	UserID        int64         `json:"userID"`
	Username      string        `json:"username"`
	OperationType OperationType `json:"operationType"`
	Details       string        `json:"details"`
	CreatedAt     time.Time     `json:"createdAt"`
}
