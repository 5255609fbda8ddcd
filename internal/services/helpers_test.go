package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/couture/internal/apperr"
	"github.com/example/couture/internal/models"
	"github.com/example/couture/internal/storage"
	"github.com/example/couture/internal/utils"
)

var testStart = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: testStart}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) last(t *testing.T) Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no email sent")
	return m.sent[len(m.sent)-1]
}

// sequence hands out the given codes in order.
func sequence(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(codes) {
			return "", errors.New("no more codes")
		}
		code := codes[i]
		i++
		return code, nil
	}
}

type env struct {
	clock    *fakeClock
	store    *storage.MemoryStore
	mailer   *recordingMailer
	tokens   *utils.JWTIssuer
	otp      *OTPService
	accounts *AccountService
}

func newEnv(t *testing.T, codes ...string) *env {
	t.Helper()
	if len(codes) == 0 {
		codes = []string{"111111", "222222", "333333", "444444"}
	}
	clock := newFakeClock()
	store := storage.NewMemoryStore().WithClock(clock.now)
	mailer := &recordingMailer{}
	templates, err := NewEmailTemplates("Couture House", "support@couture.test")
	require.NoError(t, err)
	tokens := utils.NewJWTIssuer("test-secret", time.Hour, 7*24*time.Hour, 15*time.Minute).WithClock(clock.now)
	log := zap.NewNop()

	otp := NewOTPService(store, mailer, templates, tokens, OTPConfig{TTL: 10 * time.Minute, Cooldown: time.Minute}, log).
		WithClock(clock.now).
		WithGenerator(sequence(codes...))
	accounts := NewAccountService(store, otp, tokens, log).WithClock(clock.now)
	return &env{clock: clock, store: store, mailer: mailer, tokens: tokens, otp: otp, accounts: accounts}
}

func (e *env) createUser(t *testing.T, email string, verified bool) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("Str0ng!Pass")
	require.NoError(t, err)
	user := &models.User{
		Email:           email,
		FirstName:       "Ada",
		LastName:        "Obi",
		PasswordHash:    hash,
		IsActive:        true,
		IsEmailVerified: verified,
	}
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user
}

func fieldErrors(t *testing.T, err error) apperr.FieldErrors {
	t.Helper()
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperr.KindValidation, appErr.Kind, "unexpected error: %v", err)
	return appErr.Fields
}

// fakeImages keeps uploads in memory.
type fakeImages struct {
	mu      sync.Mutex
	n       int
	saved   []string
	removed []string
	err     error
}

func (f *fakeImages) Save(ctx context.Context, folder string, upload Upload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.n++
	url := fmt.Sprintf("/media/%s/%d.png", folder, f.n)
	f.saved = append(f.saved, url)
	return url, nil
}

func (f *fakeImages) Remove(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, url)
	return nil
}

type recordingNotifier struct {
	orders chan uuid.UUID
}

func (n *recordingNotifier) NotifyNewCustomOrder(ctx context.Context, order *models.CustomOrder) error {
	n.orders <- order.ID
	return nil
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

var (
	staff    = Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-00000000aaaa"), IsStaff: true}
	customer = Actor{UserID: uuid.MustParse("00000000-0000-0000-0000-00000000bbbb")}
)
