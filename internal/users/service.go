package users

import (
	"context"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"net/mail"
	"strings"
)

const minPasswordLen = 6

var (
	ErrUserNotFound     = apperr.NotFound("user not found")
	ErrSessionNotFound  = apperr.NotFound("refresh token not found")
	ErrRegisterFields   = apperr.Validation("name, email and password are required")
	ErrLoginFields      = apperr.Validation("email and password are required")
	ErrInvalidEmail     = apperr.Validation("invalid email address")
	ErrPasswordTooShort = apperr.Validationf("password must be at least %d characters", minPasswordLen)
	ErrEmailTaken       = apperr.Conflict("user already registered with this email, please try to login")
	ErrBadCredentials   = apperr.Unauthorized("invalid credentials")
	ErrProviderAccount  = apperr.Unauthorized("this email is registered with a provider")
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	SetCart(ctx context.Context, userID, cartID uuid.UUID) error
	SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string) error
	RefreshTokenOwner(ctx context.Context, token string) (uuid.UUID, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Carts is satisfied by carts.Service.
type Carts interface {
	ResolveAtLogin(ctx context.Context, userCart, cookieCart *uuid.UUID) (uuid.UUID, error)
}

type Service struct {
	repo      Repository
	tx        UnitOfWork
	carts     Carts
	tokens    *auth.Tokens
	providers *auth.Registry
}

func NewService(repo Repository, tx UnitOfWork, carts Carts, tokens *auth.Tokens, providers *auth.Registry) *Service {
	return &Service{repo: repo, tx: tx, carts: carts, tokens: tokens, providers: providers}
}

// Register creates a credential account. The guest cart from the cookie is
// adopted, otherwise the account gets a fresh empty cart.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, ErrRegisterFields
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) < minPasswordLen {
		return nil, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("users.Register", err)
	}
	pw := string(hash)
	u := &User{ID: uuid.New(), Name: in.Name, Email: in.Email, Password: &pw, Provider: ProviderCredential, Role: RoleUser}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ensureFree(ctx, u.Email); err != nil {
			return err
		}
		cartID, err := s.carts.ResolveAtLogin(ctx, nil, in.CartID)
		if err != nil {
			return err
		}
		u.CartID = &cartID
		return s.repo.Create(ctx, u)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": u.ID, "provider": u.Provider}).Info("user registered")
	return u, nil
}

func (s *Service) ensureFree(ctx context.Context, email string) error {
	_, err := s.repo.ByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailTaken
	case apperr.KindOf(err) == apperr.KindNotFound:
		return nil
	}
	return err
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, ErrLoginFields
	}
	u, err := s.repo.ByEmail(ctx, in.Email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if u.Password == nil {
		return nil, ErrProviderAccount
	}
	if bcrypt.CompareHashAndPassword([]byte(*u.Password), []byte(in.Password)) != nil {
		return nil, ErrBadCredentials
	}
	return s.startSession(ctx, u, in.CartID)
}

// AuthURL is where the client is sent to authorize with provider.
func (s *Service) AuthURL(provider, state string) (string, error) {
	p, err := s.providers.Get(provider)
	if err != nil {
		return "", err
	}
	return p.AuthURL(state), nil
}

// ProviderLogin finishes the authorization-code flow, creating the account
// on first login.
func (s *Service) ProviderLogin(ctx context.Context, provider, code string, cookieCart *uuid.UUID) (*Session, error) {
	p, err := s.providers.Get(provider)
	if err != nil {
		return nil, err
	}
	tok, err := p.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	ext, err := p.Profile(ctx, tok)
	if err != nil {
		return nil, err
	}

	u, err := s.repo.ByEmail(ctx, ext.Email)
	switch {
	case err == nil:
	case apperr.KindOf(err) == apperr.KindNotFound:
		u = &User{
			ID:       uuid.New(),
			Name:     ext.Name,
			Email:    strings.ToLower(ext.Email),
			Avatar:   ext.Avatar,
			Provider: p.Name(),
			Role:     RoleUser,
		}
		if u.Name == "" {
			u.Name = u.Email
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{"user_id": u.ID, "provider": u.Provider}).Info("user registered")
	default:
		return nil, err
	}
	return s.startSession(ctx, u, cookieCart)
}

// startSession attaches the right cart and mints a token pair.
func (s *Service) startSession(ctx context.Context, u *User, cookieCart *uuid.UUID) (*Session, error) {
	var sess *Session
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cartID, err := s.carts.ResolveAtLogin(ctx, u.CartID, cookieCart)
		if err != nil {
			return err
		}
		if u.CartID == nil || *u.CartID != cartID {
			if err := s.repo.SetCart(ctx, u.ID, cartID); err != nil {
				return err
			}
			u.CartID = &cartID
		}
		sess, err = s.issue(ctx, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user_id": u.ID, "cart_id": sess.CartID}).Info("user logged in")
	return sess, nil
}

func (s *Service) issue(ctx context.Context, u *User) (*Session, error) {
	access, err := s.tokens.IssueAccess(u.Profile())
	if err != nil {
		return nil, apperr.Internal("users.issue", err)
	}
	refresh, err := s.tokens.IssueRefresh(u.ID)
	if err != nil {
		return nil, apperr.Internal("users.issue", err)
	}
	if err := s.repo.SaveRefreshToken(ctx, u.ID, refresh); err != nil {
		return nil, err
	}
	sess := &Session{User: u, AccessToken: access, RefreshToken: refresh}
	if u.CartID != nil {
		sess.CartID = *u.CartID
	}
	return sess, nil
}

// Refresh rotates the refresh token: the presented one is consumed and a
// new pair is issued. A token that is not on record is rejected even when
// its signature is valid.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	var sess *Session
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		owner, err := s.repo.RefreshTokenOwner(ctx, refreshToken)
		if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			return err
		}
		if err != nil || owner != userID {
			return auth.ErrInvalidToken
		}
		if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
			return err
		}
		u, err := s.repo.Get(ctx, userID)
		if err != nil {
			return err
		}
		sess, err = s.issue(ctx, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Logout forgets the refresh token. Callers treat the error as advisory.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrSessionNotFound
	}
	return s.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *Service) Me(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) All(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}
