package models

// MemberSummary is the public profile of a member.
type MemberSummary struct {
	ID              int64    `json:"id"`
	Nickname        string   `json:"nickname"`
	Country         string   `json:"country"`
	EnglishLevel    string   `json:"englishLevel"`
	Interests       []string `json:"interests"`
	Description     string   `json:"description"`
	ProfileImageURL string   `json:"profileImageUrl"`
}

// MyProfile is returned by the "me" endpoint; it names the id memberId.
type MyProfile struct {
	MemberID        int64    `json:"memberId"`
	Nickname        string   `json:"nickname"`
	Country         string   `json:"country"`
	EnglishLevel    string   `json:"englishLevel"`
	Interests       []string `json:"interests"`
	Description     string   `json:"description"`
	ProfileImageURL *string  `json:"profileImageUrl"`
}

// Summary maps the profile onto MemberSummary.
func (p MyProfile) Summary() MemberSummary {
	s := MemberSummary{
		ID:           p.MemberID,
		Nickname:     p.Nickname,
		Country:      p.Country,
		EnglishLevel: p.EnglishLevel,
		Interests:    p.Interests,
		Description:  p.Description,
	}
	if p.ProfileImageURL != nil {
		s.ProfileImageURL = *p.ProfileImageURL
	}
	return s
}

// LoginRequest is the body of the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// JoinRequest is the body of the signup endpoint.
type JoinRequest struct {
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	Nickname     string   `json:"nickname"`
	Country      string   `json:"country,omitempty"`
	EnglishLevel string   `json:"englishLevel,omitempty"`
	Interests    []string `json:"interests,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// StoredSession is the persisted part of a session.
type StoredSession struct {
	MemberID   int64  `db:"member_id" json:"member_id"`
	Credential string `db:"credential" json:"credential"`
	Role       string `db:"role" json:"role"`
	UpdatedAt  int64  `db:"updated_at" json:"updated_at"`
}

// RoleAdmin is the role claim carried by administrator credentials.
const RoleAdmin = "ROLE_ADMIN"
