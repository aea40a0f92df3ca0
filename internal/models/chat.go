package models

// GroupRoom is a public group chat room as listed by the discovery endpoint.
type GroupRoom struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Topic       string `json:"topic"`
	HasPassword bool   `json:"hasPassword"`
	MemberCount int    `json:"memberCount"`
}

// GroupRoomCapacity is the member limit the backend enforces for group rooms.
const GroupRoomCapacity = 50

// JoinGroupRequest carries the optional room password.
type JoinGroupRequest struct {
	Password string `json:"password,omitempty"`
}
