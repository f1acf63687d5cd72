package auth

import (
	"context"
	"encoding/json"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"net/http"
	"sort"
)

var (
	ErrUnknownProvider = apperr.NotFound("login provider not supported")
	ErrMissingCode     = apperr.Validation("missing provider code")
	ErrStateMismatch   = apperr.Unauthorized("login state mismatch")
	ErrProviderFailed  = apperr.Unauthorized("failed to fetch provider account")
	ErrProviderNoEmail = apperr.Unauthorized("provider account has no email")
)

// ExternalProfile is what a provider tells us about the account.
type ExternalProfile struct {
	Name   string
	Email  string
	Avatar string
}

type Provider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Profile(ctx context.Context, tok *oauth2.Token) (*ExternalProfile, error)
}

type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (c ClientConfig) Enabled() bool { return c.ClientID != "" && c.ClientSecret != "" }

// oauthProvider covers the authorization-code flow shared by every provider.
// Only profile decoding differs.
type oauthProvider struct {
	name       string
	conf       *oauth2.Config
	profileURL string
	decode     func(ctx context.Context, c *http.Client, body json.RawMessage) (*ExternalProfile, error)
}

func (p *oauthProvider) Name() string { return p.name }

func (p *oauthProvider) AuthURL(state string) string { return p.conf.AuthCodeURL(state) }

func (p *oauthProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, ErrMissingCode
	}
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindUnauthorized, Op: p.name + ".Exchange", Message: "failed to fetch provider token", Err: err}
	}
	return tok, nil
}

func (p *oauthProvider) Profile(ctx context.Context, tok *oauth2.Token) (*ExternalProfile, error) {
	client := p.conf.Client(ctx, tok)
	var body json.RawMessage
	if err := getJSON(ctx, client, p.profileURL, &body); err != nil {
		return nil, ErrProviderFailed.WithOp(p.name + ".Profile")
	}
	prof, err := p.decode(ctx, client, body)
	if err != nil {
		return nil, err
	}
	if prof.Email == "" {
		return nil, ErrProviderNoEmail
	}
	return prof, nil
}

func getJSON(ctx context.Context, c *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return errors.Errorf("GET %s: %s", url, res.Status)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func NewGoogle(c ClientConfig) Provider {
	return &oauthProvider{
		name: "google",
		conf: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
		},
		profileURL: "https://www.googleapis.com/oauth2/v3/userinfo",
		decode: func(_ context.Context, _ *http.Client, body json.RawMessage) (*ExternalProfile, error) {
			var v struct {
				Name    string `json:"name"`
				Email   string `json:"email"`
				Picture string `json:"picture"`
			}
			if err := json.Unmarshal(body, &v); err != nil {
				return nil, ErrProviderFailed.WithOp("google.Profile")
			}
			return &ExternalProfile{Name: v.Name, Email: v.Email, Avatar: v.Picture}, nil
		},
	}
}

func NewFacebook(c ClientConfig) Provider {
	return &oauthProvider{
		name: "facebook",
		conf: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Endpoint:     facebook.Endpoint,
			Scopes:       []string{"public_profile", "email"},
		},
		profileURL: "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)",
		decode: func(_ context.Context, _ *http.Client, body json.RawMessage) (*ExternalProfile, error) {
			var v struct {
				Name    string `json:"name"`
				Email   string `json:"email"`
				Picture struct {
					Data struct {
						URL string `json:"url"`
					} `json:"data"`
				} `json:"picture"`
			}
			if err := json.Unmarshal(body, &v); err != nil {
				return nil, ErrProviderFailed.WithOp("facebook.Profile")
			}
			return &ExternalProfile{Name: v.Name, Email: v.Email, Avatar: v.Picture.Data.URL}, nil
		},
	}
}

func NewGithub(c ClientConfig) Provider {
	return newGithub(c, "https://api.github.com")
}

// github hides the address unless it is public, so the primary one is
// fetched from /user/emails when /user has none.
func newGithub(c ClientConfig, apiBase string) *oauthProvider {
	return &oauthProvider{
		name: "github",
		conf: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  c.RedirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"user:email", "read:user"},
		},
		profileURL: apiBase + "/user",
		decode: func(ctx context.Context, client *http.Client, body json.RawMessage) (*ExternalProfile, error) {
			var v struct {
				Name      string `json:"name"`
				Login     string `json:"login"`
				Email     string `json:"email"`
				AvatarURL string `json:"avatar_url"`
			}
			if err := json.Unmarshal(body, &v); err != nil {
				return nil, ErrProviderFailed.WithOp("github.Profile")
			}
			prof := &ExternalProfile{Name: v.Name, Email: v.Email, Avatar: v.AvatarURL}
			if prof.Name == "" {
				prof.Name = v.Login
			}
			if prof.Email != "" {
				return prof, nil
			}

			var emails []struct {
				Email    string `json:"email"`
				Primary  bool   `json:"primary"`
				Verified bool   `json:"verified"`
			}
			if err := getJSON(ctx, client, apiBase+"/user/emails", &emails); err != nil {
				return nil, ErrProviderFailed.WithOp("github.Profile")
			}
			for _, e := range emails {
				if e.Primary && e.Verified {
					prof.Email = e.Email
					break
				}
			}
			return prof, nil
		},
	}
}

// Registry dispatches provider logins by name.
type Registry struct{ providers map[string]Provider }

func NewRegistry(ps ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(ps))}
	for _, p := range ps {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
