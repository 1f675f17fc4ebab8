package events

import (
	announcements "callboard/internal/announcements/domain"
)

// AnnouncementsChanged is published after any committed change to the
// announcement set. It carries the full ordered set so displays replace
// their ticker wholesale instead of patching deltas.
type AnnouncementsChanged struct {
	Announcements []announcements.Announcement `json:"announcements"`
}
