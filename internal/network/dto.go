package network

// TokenResponse is the token endpoint's response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	CreatedAt   int64  `json:"created_at"`
}

// PhotoResult is a single photo as returned by the photos endpoint.
type PhotoResult struct {
	ID          string     `json:"id"`
	CreatedAt   *string    `json:"created_at"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
	Description *string    `json:"description"`
	URLs        URLsResult `json:"urls"`
	LikedByUser bool       `json:"liked_by_user"`
}

// URLsResult holds the CDN resolution variants of a photo.
type URLsResult struct {
	Full    string `json:"full"`
	Thumb   string `json:"thumb"`
	Regular string `json:"regular"`
}

// ProfileResult is the current user's profile as returned by /me.
type ProfileResult struct {
	Username  string  `json:"username"`
	FirstName string  `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
}

// UserResult is the public user record returned by /users/{username}.
type UserResult struct {
	ProfileImage ProfileImage `json:"profile_image"`
}

// ProfileImage holds the avatar URL variants of a user.
type ProfileImage struct {
	Small string `json:"small"`
}
