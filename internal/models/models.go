package models

import (
	"encoding/json"
	"sort"
	"time"
)

// User represents an account within the bemaster platform.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Nickname     string    `json:"nickname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicProfile is the subset of a user exposed to anonymous callers.
type PublicProfile struct {
	Name     string `json:"name"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

// Profile returns the public view of the user.
func (u User) Profile() PublicProfile {
	return PublicProfile{Name: u.Name, Nickname: u.Nickname, Email: u.Email}
}

// Visibility controls who may see a video.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// VisibilityFromBool maps the public flag used by clients to a Visibility.
func VisibilityFromBool(public bool) Visibility {
	if public {
		return VisibilityPublic
	}
	return VisibilityPrivate
}

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Video is an uploaded video owned by exactly one user.
type Video struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Credits     string     `json:"credits"`
	OwnerID     string     `json:"ownerId"`
	Visibility  Visibility `json:"visibility"`
	MediaKey    string     `json:"mediaKey"`
	URL         string     `json:"url"`
	PublishedAt time.Time  `json:"publishedAt"`
	Likers      LikerSet   `json:"likes"`
}

// IsPublic reports whether the video is visible to everyone.
func (v Video) IsPublic() bool {
	return v.Visibility == VisibilityPublic
}

// Comment is a text note left by a user on a video.
type Comment struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	UserID    string    `json:"userId"`
	Body      string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikerSet is the set of user ids that liked a video.
type LikerSet map[string]struct{}

// NewLikerSet builds a set from ids, dropping duplicates and blanks.
func NewLikerSet(ids ...string) LikerSet {
	s := make(LikerSet, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// Has reports whether userID is in the set.
func (s LikerSet) Has(userID string) bool {
	_, ok := s[userID]
	return ok
}

// Add inserts userID and reports whether it was absent.
func (s LikerSet) Add(userID string) bool {
	if s.Has(userID) {
		return false
	}
	s[userID] = struct{}{}
	return true
}

// Len returns the number of likers.
func (s LikerSet) Len() int {
	return len(s)
}

// IDs returns the members sorted for stable output.
func (s LikerSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalJSON encodes the set as a sorted array.
func (s LikerSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// UnmarshalJSON decodes an array of ids into the set.
func (s *LikerSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewLikerSet(ids...)
	return nil
}
