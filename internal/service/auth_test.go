package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"castgate/auth-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeVerifier struct {
	fid uint64
	err error
}

func (f *fakeVerifier) VerifySignInMessage(_ context.Context, _, _, _ string) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.fid, nil
}

type fakeChannels struct {
	channel Channel
	status  ChannelStatus
	err     error
}

func (f *fakeChannels) CreateChannel(_ context.Context) (*Channel, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := f.channel
	return &ch, nil
}

func (f *fakeChannels) ChannelStatus(_ context.Context, _ string) (*ChannelStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	st := f.status
	return &st, nil
}

type sentMail struct {
	to, subject, body string
}

type fakeMail struct {
	sent []sentMail
	err  error
}

func (f *fakeMail) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

type authFixture struct {
	auth     *Auth
	db       *gorm.DB
	verifier *fakeVerifier
	channels *fakeChannels
	mail     *fakeMail
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := newTestDB(t)
	f := &authFixture{
		db:       db,
		verifier: &fakeVerifier{fid: 42},
		channels: &fakeChannels{
			channel: Channel{Token: "chan-token", URL: "https://example.com/siwf"},
			status:  ChannelStatus{State: ChannelStatePending},
		},
		mail: &fakeMail{},
	}

	f.auth = NewAuth(
		NewTokenRegistry(db),
		NewProfileLinker(db),
		NewSessions(db, DefaultSessionConfig()),
		f.verifier,
		f.channels,
		f.mail,
		DefaultAuthConfig(),
	)

	return f
}

var codePattern = regexp.MustCompile(`\d{6}`)

func TestOtpFlow(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.auth.IssueOtp(ctx, "t@x.com"))
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "t@x.com", f.mail.sent[0].to)

	code := codePattern.FindString(f.mail.sent[0].body)
	require.NotEmpty(t, code)

	// Wrong code reads exactly like a missing token
	_, err := f.auth.VerifyOtp(ctx, "t@x.com", "000000")
	if code == "000000" {
		t.Skip("drew the one colliding code")
	}
	assert.ErrorIs(t, err, ErrInvalidToken)

	result, err := f.auth.VerifyOtp(ctx, "t@x.com", code)
	require.NoError(t, err)
	require.NotNil(t, result.User)
	require.NotNil(t, result.Session)
	assert.Equal(t, result.User.ID, result.Session.UserID)

	// Consumed: the same code never works twice
	_, err = f.auth.VerifyOtp(ctx, "t@x.com", code)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueOtpResendGuard(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.auth.IssueOtp(ctx, "t@x.com"))

	err := f.auth.IssueOtp(ctx, "t@x.com")

	var notExpired *TokenNotExpiredError
	require.ErrorAs(t, err, &notExpired)
	assert.Len(t, f.mail.sent, 1)
}

func TestIssueOtpGuardIsPerAddress(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	// Addresses that differ only where one holds a LIKE metacharacter must
	// never block each other
	require.NoError(t, f.auth.IssueOtp(ctx, "johnXdoe@x.com"))
	require.NoError(t, f.auth.IssueOtp(ctx, "john_doe@x.com"))
	assert.Len(t, f.mail.sent, 2)
}

func TestIssueOtpRollsBackOnMailFailure(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.mail.err = errors.New("smtp down")

	err := f.auth.IssueOtp(ctx, "t@x.com")

	var external *ExternalServiceError
	require.ErrorAs(t, err, &external)

	// The undelivered code must not block a retry
	f.mail.err = nil
	require.NoError(t, f.auth.IssueOtp(ctx, "t@x.com"))
}

func TestSIWFNonceFlow(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	nonce, err := f.auth.NonceChallenge(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, nonce)

	result, err := f.auth.VerifySIWFNonce(ctx, "siwf message", "0xsig", nonce)
	require.NoError(t, err)
	require.NotNil(t, result.Session)

	// Fresh user linked to the verified FID
	profiles, err := NewProfileLinker(f.db).Profiles(ctx, result.User.ID)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, model.ProfileMeta{Key: model.MetaKeyFarcaster, FID: 42}, profiles[0].Meta)

	// Nonce was consumed, replays fail
	_, err = f.auth.VerifySIWFNonce(ctx, "siwf message", "0xsig", nonce)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSIWFNonceSameFIDReusesUser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	nonce1, err := f.auth.NonceChallenge(ctx)
	require.NoError(t, err)
	first, err := f.auth.VerifySIWFNonce(ctx, "m", "s", nonce1)
	require.NoError(t, err)

	nonce2, err := f.auth.NonceChallenge(ctx)
	require.NoError(t, err)
	second, err := f.auth.VerifySIWFNonce(ctx, "m", "s", nonce2)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.NotEqual(t, first.Session.ID, second.Session.ID)
}

func TestSIWFNonceVerifierRejection(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.verifier.err = errors.New("bad signature: recovered address mismatch")

	nonce, err := f.auth.NonceChallenge(ctx)
	require.NoError(t, err)

	_, err = f.auth.VerifySIWFNonce(ctx, "m", "forged", nonce)
	// Generic error only; verifier detail never surfaces
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.NotContains(t, err.Error(), "recovered address")

	// Two-phase consume: the rejected attempt left the nonce intact
	f.verifier.err = nil
	_, err = f.auth.VerifySIWFNonce(ctx, "m", "s", nonce)
	require.NoError(t, err)
}

func TestSIWFNonceUnknownNonce(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.auth.VerifySIWFNonce(ctx, "m", "s", "never-issued")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSIWFURLFlow(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	channel, err := f.auth.URLChallenge(ctx)
	require.NoError(t, err)
	assert.Equal(t, "chan-token", channel.Token)
	assert.NotEmpty(t, channel.URL)

	// Still pending: no session, token stays live
	_, err = f.auth.VerifySIWFUrl(ctx, channel.Token)
	assert.ErrorIs(t, err, ErrSignInPending)

	f.channels.status = ChannelStatus{
		State:     ChannelStateCompleted,
		FID:       99,
		Message:   "m",
		Signature: "s",
	}

	result, err := f.auth.VerifySIWFUrl(ctx, channel.Token)
	require.NoError(t, err)
	require.NotNil(t, result.Session)

	// Channel token is single-use once completed
	_, err = f.auth.VerifySIWFUrl(ctx, channel.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSIWFURLProviderFailure(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	channel, err := f.auth.URLChallenge(ctx)
	require.NoError(t, err)

	f.channels.err = errors.New("relay 503")

	_, err = f.auth.VerifySIWFUrl(ctx, channel.Token)

	var external *ExternalServiceError
	require.ErrorAs(t, err, &external)

	// Retryable: the channel token survives the outage
	f.channels.err = nil
	f.channels.status = ChannelStatus{State: ChannelStateCompleted, FID: 7}

	_, err = f.auth.VerifySIWFUrl(ctx, channel.Token)
	require.NoError(t, err)
}

func TestURLChallengeExpires(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	channel, err := f.auth.URLChallenge(ctx)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&model.VerificationToken{}).
		Where("hash_input = ?", SIWFURLKey(channel.Token)).
		Update("expires_at", time.Now().Add(-time.Second)).Error)

	_, err = f.auth.VerifySIWFUrl(ctx, channel.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
