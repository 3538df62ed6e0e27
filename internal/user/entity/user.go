package entity

import "time"

// User represents an account row in the `users` table. Password accounts carry
// HashedPassword; Kakao accounts carry KakaoID and the profile fields collected
// during OAuth registration. The refresh-token slot (hash + expiry) is always
// set or cleared as a pair.
type User struct {
	ID                    int64      `db:"id"`
	Username              string     `db:"username"`
	Name                  string     `db:"name"`
	HashedPassword        *string    `db:"hashed_password"`
	KakaoID               *int64     `db:"kakao_id"`
	StudentID             *string    `db:"student_id"`
	Nickname              *string    `db:"nickname"`
	PhoneNumber           *string    `db:"phone_number"`
	Birthdate             *time.Time `db:"birthdate"`
	Gender                *string    `db:"gender"`
	RefreshTokenHash      *string    `db:"refresh_token_hash"`
	RefreshTokenExpiresAt *time.Time `db:"refresh_token_expires_at"`
}

// SetSession fills the refresh slot. The expiry is normalized to UTC.
func (u *User) SetSession(hash string, expiresAt time.Time) {
	exp := expiresAt.UTC()
	u.RefreshTokenHash = &hash
	u.RefreshTokenExpiresAt = &exp
}

// ClearSession empties the refresh slot.
func (u *User) ClearSession() {
	u.RefreshTokenHash = nil
	u.RefreshTokenExpiresAt = nil
}

// SessionExpired reports whether the refresh slot is empty or its expiry is not
// strictly after now.
func (u *User) SessionExpired(now time.Time) bool {
	if u.RefreshTokenExpiresAt == nil {
		return true
	}
	return !now.UTC().Before(*u.RefreshTokenExpiresAt)
}

// Profile is the public projection returned by the API.
type Profile struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	Name        string  `json:"name"`
	Nickname    *string `json:"nickname,omitempty"`
	StudentID   *string `json:"student_id,omitempty"`
	KakaoLinked bool    `json:"kakao_linked"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Username:    u.Username,
		Name:        u.Name,
		Nickname:    u.Nickname,
		StudentID:   u.StudentID,
		KakaoLinked: u.KakaoID != nil,
	}
}
