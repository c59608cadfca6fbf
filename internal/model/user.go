package model

import "time"

// User is a registered contributor.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"`
	IsActive       bool      `json:"isActive"`
	IsSuperuser    bool      `json:"isSuperuser"`
	Score          int       `json:"score"`
	Badges         []string  `json:"earnedBadges"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// PublicUser is the profile visible to other users.
type PublicUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Score     int       `json:"score"`
	Badges    []string  `json:"earnedBadges"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips private fields.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Score:     u.Score,
		Badges:    u.Badges,
		CreatedAt: u.CreatedAt,
	}
}

// RegisterRequest is the body of POST /api/users/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /api/users/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserUpdate is a partial profile update; nil fields are left unchanged.
type UserUpdate struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// TokenResponse is returned on successful login.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresAt   int64  `json:"expiresAt"`
}

// GamificationResponse summarises a user's reward state.
type GamificationResponse struct {
	UserID       int64         `json:"userId"`
	Score        int           `json:"score"`
	Badges       []string      `json:"earnedBadges"`
	NextBadge    *string       `json:"nextBadge,omitempty"`
	PointsToNext int           `json:"pointsToNext,omitempty"`
	Recent       []RewardEvent `json:"recentRewards"`
}

// RewardEvent is one entry in the points ledger.
type RewardEvent struct {
	EventID     string    `json:"eventId"`
	UserID      int64     `json:"userId"`
	MediaItemID *int64    `json:"mediaItemId,omitempty"`
	Points      int       `json:"points"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StatsResponse is the API response for platform statistics.
type StatsResponse struct {
	TotalMedia     int            `json:"totalMedia"`
	ValidatedMedia int            `json:"validatedMedia"`
	PendingAI      int            `json:"pendingAi"`
	TotalVotes     int            `json:"totalVotes"`
	TotalUsers     int            `json:"totalUsers"`
	ActiveVoters7d int            `json:"activeVoters7d"`
	TopSpecies     map[string]int `json:"topSpecies"`
}
