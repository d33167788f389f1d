package schemas

// LoginRequest exchanges a username/password pair for an access token.
type LoginRequest struct {
	Body struct {
		Username string `json:"username" minLength:"1" doc:"Account name"`
		Password string `json:"password" minLength:"1" doc:"Account secret"`
	}
}

type LoginResponse struct {
	Body struct {
		AccessToken string `json:"access_token" doc:"Short-lived bearer token"`
		TokenType   string `json:"token_type" doc:"Token type descriptor" example:"bearer"`
		ExpiresIn   int    `json:"expires_in" doc:"Access token lifetime in seconds"`
	}
}

type User struct {
	ID         string   `json:"id" doc:"Unique identifier for the principal"`
	Username   string   `json:"username" doc:"Login name of the principal"`
	Scopes     []string `json:"scopes" doc:"Scopes granted to the principal"`
	AuthMethod string   `json:"auth_method" doc:"How the request was authenticated" enum:"jwt,api_key"`
}

type MeResponse struct {
	Body struct {
		User User `json:"user"`
	}
}

type ValidateTokenResponse struct {
	Body struct {
		Valid bool `json:"valid" doc:"Whether the presented credentials are valid"`
		User  User `json:"user" doc:"Principal resolved from the credentials"`
	}
}
