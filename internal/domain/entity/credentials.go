package entity

// Credentials holds the OAuth 1.0a key material for the social platform.
// BearerToken is optional and only used for read-only calls.
type Credentials struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
	BearerToken       string
}

// Validate checks that every required secret is present.
// The returned error names the environment key of the first missing value.
func (c Credentials) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"CONSUMER_KEY", c.ConsumerKey},
		{"CONSUMER_SECRET", c.ConsumerSecret},
		{"ACCESS_TOKEN", c.AccessToken},
		{"ACCESS_TOKEN_SECRET", c.AccessTokenSecret},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigurationError{Key: r.key}
		}
	}
	return nil
}

// HasBearerToken reports whether app-only authentication is available.
func (c Credentials) HasBearerToken() bool {
	return c.BearerToken != ""
}

// Secrets returns every non-empty secret, used to mask values in logs.
func (c Credentials) Secrets() []string {
	var out []string
	for _, s := range []string{c.ConsumerKey, c.ConsumerSecret, c.AccessToken, c.AccessTokenSecret, c.BearerToken} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
