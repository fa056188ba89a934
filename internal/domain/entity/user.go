package entity

import "time"

const (
	RoleRenter   = "renter"
	RoleLandlord = "landlord"
	RoleAgent    = "agent"
	RoleAdmin    = "admin"

	VerificationStatusVerified = "verified"
)

// User is the read-only profile slice the messaging core needs for sender
// enrichment and the verified-sender policy. Profiles are owned elsewhere.
type User struct {
	ID                 string    `json:"id" firestore:"id" bson:"_id"`
	DisplayName        string    `json:"display_name" firestore:"displayName" bson:"displayName"`
	Email              string    `json:"email,omitempty" firestore:"email" bson:"email"`
	Role               string    `json:"role" firestore:"role" bson:"role"`
	PhotoURL           string    `json:"photo_url,omitempty" firestore:"photoURL,omitempty" bson:"photoURL,omitempty"`
	VerificationStatus string    `json:"verification_status" firestore:"verificationStatus" bson:"verificationStatus"`
	CreatedAt          time.Time `json:"created_at" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time `json:"updated_at" firestore:"updatedAt" bson:"updatedAt"`
}

func (u *User) IsVerified() bool {
	return u != nil && u.VerificationStatus == VerificationStatusVerified
}
