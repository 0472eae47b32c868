package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const MaxRoomNameLen = 50

type (
	RoomName string
	RoomID   string
)

type Room struct {
	ID        RoomID     `json:"roomId"`
	Name      RoomName   `json:"name"`
	Members   []Identity `json:"members"`
	CreatedAt time.Time  `json:"createdAt"`
}

// RoomInfo is the list view of a room, without members.
type RoomInfo struct {
	ID          RoomID   `json:"roomId"`
	Name        RoomName `json:"name"`
	MemberCount int      `json:"memberCount"`
}

func NewRoomName(raw string) (RoomName, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrRoomNameEmpty
	}
	if utf8.RuneCountInString(raw) > MaxRoomNameLen {
		return "", ErrRoomNameTooLong
	}
	return RoomName(raw), nil
}

// HasMember reports whether id is in the member list.
func (r Room) HasMember(id Identity) bool {
	for _, m := range r.Members {
		if m == id {
			return true
		}
	}
	return false
}
