package spotify

// TokenResponse is the accounts-service response to a code exchange or a
// token refresh. RefreshToken is empty on refresh responses.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Profile is the subset of the /me response the backend uses.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// Image is a Spotify image reference.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Artist is an entry from the user's top-artists ranking.
type Artist struct {
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	Images []Image  `json:"images"`
}

// Track is an entry from the user's top-tracks ranking.
type Track struct {
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Images []Image `json:"images"`
	} `json:"album"`
}

type artistsPage struct {
	Items []Artist `json:"items"`
}

type tracksPage struct {
	Items []Track `json:"items"`
}
