package models

// User is the identity record stored in DynamoDB. The cache keeps a
// serialized snapshot of it under both the id and email namespaces.
type User struct {
	ID                     string   `dynamodbav:"id" json:"id"`
	FirstName              string   `dynamodbav:"firstName" json:"firstName"`
	LastName               string   `dynamodbav:"lastName" json:"lastName"`
	Email                  string   `dynamodbav:"email" json:"email"`
	UserName               string   `dynamodbav:"userName" json:"userName"`
	PasswordHash           string   `dynamodbav:"passwordHash" json:"-"`
	Bio                    string   `dynamodbav:"bio,omitempty" json:"bio,omitempty"`
	AvatarURL              string   `dynamodbav:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	Friends                []string `dynamodbav:"friends,stringset,omitemptyelem" json:"friends,omitempty"`
	IncomingFriendRequests []string `dynamodbav:"incomingFriendRequests,stringset,omitemptyelem" json:"incomingFriendRequests,omitempty"`
	SentFriendRequests     []string `dynamodbav:"sentFriendRequests,stringset,omitemptyelem" json:"sentFriendRequests,omitempty"`
	RefreshToken           string   `dynamodbav:"refreshToken,omitempty" json:"-"`
	CreatedAt              string   `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt              string   `dynamodbav:"updatedAt" json:"updatedAt"`
}

// PublicProfile is the projection of a User safe to hand to other users.
type PublicProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	UserName  string `json:"userName"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// PublicProfile strips everything a stranger should not see.
func (u *User) PublicProfile() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		UserName:  u.UserName,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
	}
}

// HasFriend reports whether id is in the user's friend set.
func (u *User) HasFriend(id string) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// HasIncomingRequest reports whether id has a pending request to this user.
func (u *User) HasIncomingRequest(id string) bool {
	for _, f := range u.IncomingFriendRequests {
		if f == id {
			return true
		}
	}
	return false
}

// UsersTable is the DynamoDB table name for identity records
const UsersTable = "Users"

// GSI names on UsersTable used for lookup before the id is known
const (
	EmailIndex    = "email-index"
	UserNameIndex = "userName-index"
)
