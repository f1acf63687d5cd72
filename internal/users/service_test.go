package users

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type memUsers struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*User
	tokens map[string]uuid.UUID
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[uuid.UUID]*User{}, tokens: map[string]uuid.UUID{}}
}

func (m *memUsers) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Get(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) ByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) List(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []User{}
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memUsers) SetCart(_ context.Context, userID, cartID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.CartID = &cartID
	return nil
}

func (m *memUsers) SaveRefreshToken(_ context.Context, userID uuid.UUID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = userID
	return nil
}

func (m *memUsers) RefreshTokenOwner(_ context.Context, token string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	if !ok {
		return uuid.Nil, ErrSessionNotFound
	}
	return id, nil
}

func (m *memUsers) DeleteRefreshToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[token]; !ok {
		return ErrSessionNotFound
	}
	delete(m.tokens, token)
	return nil
}

// fakeCarts follows the login cart rules without any cart storage.
type fakeCarts struct {
	merged [][2]uuid.UUID
}

func (f *fakeCarts) ResolveAtLogin(_ context.Context, userCart, cookieCart *uuid.UUID) (uuid.UUID, error) {
	switch {
	case userCart != nil && cookieCart != nil && *userCart != *cookieCart:
		f.merged = append(f.merged, [2]uuid.UUID{*cookieCart, *userCart})
		return *userCart, nil
	case userCart != nil:
		return *userCart, nil
	case cookieCart != nil:
		return *cookieCart, nil
	}
	return uuid.New(), nil
}

type fakeProvider struct {
	profile auth.ExternalProfile
}

func (fakeProvider) Name() string { return "google" }
func (fakeProvider) AuthURL(state string) string { return "https://accounts.example/auth?state=" + state }
func (fakeProvider) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, auth.ErrMissingCode
	}
	return &oauth2.Token{AccessToken: "tok-" + code}, nil
}
func (f fakeProvider) Profile(context.Context, *oauth2.Token) (*auth.ExternalProfile, error) {
	p := f.profile
	return &p, nil
}

type fixture struct {
	svc    *Service
	repo   *memUsers
	carts  *fakeCarts
	tokens *auth.Tokens
}

func newFixture() fixture {
	repo := newMemUsers()
	carts := &fakeCarts{}
	tokens := auth.NewTokens("access", "refresh")
	reg := auth.NewRegistry(fakeProvider{profile: auth.ExternalProfile{Name: "Budi", Email: "Budi@Example.com", Avatar: "a.png"}})
	return fixture{
		svc:    NewService(repo, noTx{}, carts, tokens, reg),
		repo:   repo,
		carts:  carts,
		tokens: tokens,
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	t.Run("hashes password and gives a cart", func(t *testing.T) {
		u, err := f.svc.Register(ctx, RegisterInput{Name: " Rina ", Email: "Rina@Example.com", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, "Rina", u.Name)
		assert.Equal(t, "rina@example.com", u.Email)
		assert.Equal(t, RoleUser, u.Role)
		require.NotNil(t, u.Password)
		assert.NotEqual(t, "secret1", *u.Password)
		assert.NotNil(t, u.CartID)
	})

	t.Run("adopts guest cart", func(t *testing.T) {
		guest := uuid.New()
		u, err := f.svc.Register(ctx, RegisterInput{Name: "Tono", Email: "tono@example.com", Password: "secret1", CartID: &guest})
		require.NoError(t, err)
		assert.Equal(t, guest, *u.CartID)
	})

	t.Run("rejects", func(t *testing.T) {
		cases := map[string]struct {
			in   RegisterInput
			want error
		}{
			"missing name": {RegisterInput{Email: "x@example.com", Password: "secret1"}, ErrRegisterFields},
			"bad email":    {RegisterInput{Name: "X", Email: "nope", Password: "secret1"}, ErrInvalidEmail},
			"short pass":   {RegisterInput{Name: "X", Email: "x@example.com", Password: "123"}, ErrPasswordTooShort},
			"email taken":  {RegisterInput{Name: "X", Email: "RINA@example.com", Password: "secret1"}, ErrEmailTaken},
		}
		for name, tc := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := f.svc.Register(ctx, tc.in)
				assert.ErrorIs(t, err, tc.want)
			})
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	u, err := f.svc.Register(ctx, RegisterInput{Name: "Rina", Email: "rina@example.com", Password: "secret1"})
	require.NoError(t, err)
	userCart := *u.CartID

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Login(ctx, LoginInput{Email: "rina@example.com", Password: "nope123"})
		assert.ErrorIs(t, err, ErrBadCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "secret1"})
		assert.ErrorIs(t, err, ErrBadCredentials)
	})

	t.Run("merges guest cart into user cart", func(t *testing.T) {
		guest := uuid.New()
		sess, err := f.svc.Login(ctx, LoginInput{Email: "rina@example.com", Password: "secret1", CartID: &guest})
		require.NoError(t, err)
		assert.Equal(t, userCart, sess.CartID)
		assert.Equal(t, [][2]uuid.UUID{{guest, userCart}}, f.carts.merged)

		prof, err := f.tokens.ParseAccess(sess.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, u.ID, prof.ID)
		assert.Equal(t, userCart, *prof.CartID)

		owner, err := f.repo.RefreshTokenOwner(ctx, sess.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, u.ID, owner)
	})
}

func TestLoginProviderAccountHasNoPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.svc.ProviderLogin(ctx, "google", "code", nil)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginInput{Email: "budi@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrProviderAccount)
}

func TestProviderLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	guest := uuid.New()

	first, err := f.svc.ProviderLogin(ctx, "google", "c1", &guest)
	require.NoError(t, err)
	assert.Equal(t, "budi@example.com", first.User.Email)
	assert.Equal(t, "google", first.User.Provider)
	assert.Nil(t, first.User.Password)
	assert.Equal(t, guest, first.CartID, "first login adopts the guest cart")

	again, err := f.svc.ProviderLogin(ctx, "google", "c2", nil)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, again.User.ID, "second login reuses the account")
	assert.Equal(t, guest, again.CartID)

	_, err = f.svc.ProviderLogin(ctx, "myspace", "c", nil)
	assert.ErrorIs(t, err, auth.ErrUnknownProvider)
	_, err = f.svc.ProviderLogin(ctx, "google", "", nil)
	assert.ErrorIs(t, err, auth.ErrMissingCode)

	url, err := f.svc.AuthURL("google", "st")
	require.NoError(t, err)
	assert.Contains(t, url, "state=st")
}

func TestRefreshRotates(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.svc.Register(ctx, RegisterInput{Name: "Rina", Email: "rina@example.com", Password: "secret1"})
	require.NoError(t, err)
	sess, err := f.svc.Login(ctx, LoginInput{Email: "rina@example.com", Password: "secret1"})
	require.NoError(t, err)

	next, err := f.svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, next.RefreshToken)

	_, err = f.svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken, "a consumed refresh token cannot be replayed")

	_, err = f.svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.svc.Register(ctx, RegisterInput{Name: "Rina", Email: "rina@example.com", Password: "secret1"})
	require.NoError(t, err)
	sess, err := f.svc.Login(ctx, LoginInput{Email: "rina@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, sess.RefreshToken))
	assert.ErrorIs(t, f.svc.Logout(ctx, sess.RefreshToken), ErrSessionNotFound)
	assert.ErrorIs(t, f.svc.Logout(ctx, ""), ErrSessionNotFound)

	_, err = f.svc.Refresh(ctx, sess.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestMeAndAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	u, err := f.svc.Register(ctx, RegisterInput{Name: "Rina", Email: "rina@example.com", Password: "secret1"})
	require.NoError(t, err)

	me, err := f.svc.Me(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, me.Email)

	_, err = f.svc.Me(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)

	all, err := f.svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
