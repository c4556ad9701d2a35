package tokenflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/appercydev/uinbox/internal/domain/repository"
	"github.com/appercydev/uinbox/internal/email"
	"github.com/appercydev/uinbox/internal/store/memory"
	"github.com/appercydev/uinbox/internal/tokenflow"
)

type fakeSender struct {
	sent []email.Payload
	fail error
}

func (f *fakeSender) Send(ctx context.Context, kind email.Kind, p email.Payload) error {
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, p)
	return nil
}

func newManager(t *testing.T, sender email.Sender) (*tokenflow.Manager, *time.Time) {
	t.Helper()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m := tokenflow.New(memory.New().Tokens(), sender, "https://console.example.com")
	m.WithClock(func() time.Time { return now })
	return m, &now
}

func TestIssueThenValidate(t *testing.T) {
	sender := &fakeSender{}
	m, _ := newManager(t, sender)
	ctx := context.Background()

	issued, err := m.Issue(ctx, "id-1", "a@example.com", repository.TokenEmailConfirmation)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if issued.Warning != nil {
		t.Fatalf("unexpected warning: %v", issued.Warning)
	}
	if len(sender.sent) != 1 || sender.sent[0].Link != issued.Link {
		t.Fatalf("email not dispatched with link, sent=%v", sender.sent)
	}

	rec, err := m.Validate(ctx, repository.TokenEmailConfirmation, issued.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if rec.IdentityID != "id-1" {
		t.Fatalf("IdentityID = %q", rec.IdentityID)
	}

	// valor incorrecto, kind incorrecto y vacío: todos el mismo error genérico
	for _, bad := range []struct {
		kind  repository.TokenKind
		plain string
	}{
		{repository.TokenEmailConfirmation, issued.Token + "x"},
		{repository.TokenPasswordReset, issued.Token},
		{repository.TokenEmailConfirmation, ""},
	} {
		if _, err := m.Validate(ctx, bad.kind, bad.plain); !errors.Is(err, tokenflow.ErrInvalidToken) {
			t.Errorf("Validate(%s, %q) = %v, want ErrInvalidToken", bad.kind, bad.plain, err)
		}
	}
}

func TestConsumeExactlyOnce(t *testing.T) {
	m, _ := newManager(t, nil)
	ctx := context.Background()

	issued, err := m.Issue(ctx, "id-1", "a@example.com", repository.TokenPasswordReset)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	calls := 0
	effect := func(ctx context.Context) error { calls++; return nil }

	if err := m.Consume(ctx, repository.TokenPasswordReset, issued.Token, effect); err != nil {
		t.Fatalf("first Consume: %v", err)
	}
	if err := m.Consume(ctx, repository.TokenPasswordReset, issued.Token, effect); !errors.Is(err, tokenflow.ErrInvalidToken) {
		t.Fatalf("second Consume = %v, want ErrInvalidToken", err)
	}
	if calls != 1 {
		t.Fatalf("effect ran %d times, want 1", calls)
	}
	if _, err := m.Validate(ctx, repository.TokenPasswordReset, issued.Token); !errors.Is(err, tokenflow.ErrInvalidToken) {
		t.Fatalf("Validate after consume = %v, want ErrInvalidToken", err)
	}
}

func TestConsumeEffectFailureLeavesTokenUsable(t *testing.T) {
	m, _ := newManager(t, nil)
	ctx := context.Background()

	issued, err := m.Issue(ctx, "id-1", "a@example.com", repository.TokenPasswordReset)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	boom := errors.New("downstream failed")
	if err := m.Consume(ctx, repository.TokenPasswordReset, issued.Token, func(ctx context.Context) error {
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("Consume = %v, want effect error", err)
	}
	// el token sigue canjeable para reintentar
	if err := m.Consume(ctx, repository.TokenPasswordReset, issued.Token, nil); err != nil {
		t.Fatalf("retry Consume = %v, want nil", err)
	}
}

func TestExpiredTokenIsInvalid(t *testing.T) {
	m, now := newManager(t, nil)
	ctx := context.Background()

	issued, err := m.Issue(ctx, "id-1", "a@example.com", repository.TokenPasswordReset)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	*now = now.Add(tokenflow.ResetTTL + time.Second)

	if _, err := m.Validate(ctx, repository.TokenPasswordReset, issued.Token); !errors.Is(err, tokenflow.ErrInvalidToken) {
		t.Fatalf("Validate expired = %v, want ErrInvalidToken", err)
	}
	if err := m.Consume(ctx, repository.TokenPasswordReset, issued.Token, nil); !errors.Is(err, tokenflow.ErrInvalidToken) {
		t.Fatalf("Consume expired = %v, want ErrInvalidToken", err)
	}
}

func TestReissueInvalidatesPrior(t *testing.T) {
	m, _ := newManager(t, nil)
	ctx := context.Background()

	first, err := m.Issue(ctx, "id-1", "a@example.com", repository.TokenEmailConfirmation)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := m.Reissue(ctx, "id-1", "a@example.com", repository.TokenEmailConfirmation)
	if err != nil {
		t.Fatalf("Reissue: %v", err)
	}

	if _, err := m.Validate(ctx, repository.TokenEmailConfirmation, first.Token); !errors.Is(err, tokenflow.ErrInvalidToken) {
		t.Fatalf("old token still valid after reissue")
	}
	if _, err := m.Validate(ctx, repository.TokenEmailConfirmation, second.Token); err != nil {
		t.Fatalf("new token invalid: %v", err)
	}
}

func TestSendFailureIsWarningNotError(t *testing.T) {
	sender := &fakeSender{fail: errors.New("smtp down")}
	m, _ := newManager(t, sender)

	issued, err := m.Issue(context.Background(), "id-1", "a@example.com", repository.TokenEmailConfirmation)
	if err != nil {
		t.Fatalf("Issue = %v, want nil (send failure is best-effort)", err)
	}
	if issued.Warning == nil {
		t.Fatal("expected Warning when delivery fails")
	}
	// el token quedó creado igual
	if _, err := m.Validate(context.Background(), repository.TokenEmailConfirmation, issued.Token); err != nil {
		t.Fatalf("token not usable after send failure: %v", err)
	}
}

func TestStateOfPrecedence(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	used := now.Add(-time.Hour)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	cases := []struct {
		name      string
		usedAt    *time.Time
		expiresAt time.Time
		cancelled bool
		want      tokenflow.State
	}{
		{"live", nil, future, false, tokenflow.StateIssued},
		{"consumed", &used, future, false, tokenflow.StateConsumed},
		{"expired", nil, past, false, tokenflow.StateExpired},
		{"cancelled", nil, future, true, tokenflow.StateCancelled},
		// consumido gana aunque después venza o se cancele
		{"consumed beats expired", &used, past, false, tokenflow.StateConsumed},
		{"consumed beats cancelled", &used, future, true, tokenflow.StateConsumed},
		{"cancelled beats expired", nil, past, true, tokenflow.StateCancelled},
	}
	for _, c := range cases {
		if got := tokenflow.StateOf(c.usedAt, c.expiresAt, c.cancelled, now); got != c.want {
			t.Errorf("%s: StateOf = %s, want %s", c.name, got, c.want)
		}
	}
}
