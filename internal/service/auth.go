package service

import (
	"context"
	"fmt"
	"time"

	"castgate/auth-api/model"
	"castgate/auth-api/pkg/util"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const otpCharset = "0123456789"

// AuthConfig carries the challenge lifetimes from the application config.
type AuthConfig struct {
	OtpTTL     time.Duration
	OtpLength  int
	NonceTTL   time.Duration
	ChannelTTL time.Duration
}

func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		OtpTTL:     10 * time.Minute,
		OtpLength:  6,
		NonceTTL:   10 * time.Minute,
		ChannelTTL: 10 * time.Minute,
	}
}

// SignInResult is what every successful sign-in flow converges to: the
// resolved user and a fresh session whose ID is the bearer credential.
type SignInResult struct {
	User    *model.User
	Session *model.Session
}

// Auth glues the token registry, profile linker and session manager into the
// complete sign-in flows: email OTP, SIWF by client-submitted nonce, and SIWF
// by provider-hosted channel.
type Auth struct {
	tokens   *TokenRegistry
	profiles *ProfileLinker
	sessions *Sessions
	verifier SignatureVerifier
	channels ChannelProvider
	mail     MailSender
	cfg      AuthConfig
}

func NewAuth(
	tokens *TokenRegistry,
	profiles *ProfileLinker,
	sessions *Sessions,
	verifier SignatureVerifier,
	channels ChannelProvider,
	mail MailSender,
	cfg AuthConfig,
) *Auth {
	if cfg.OtpLength == 0 {
		cfg.OtpLength = 6
	}

	return &Auth{
		tokens:   tokens,
		profiles: profiles,
		sessions: sessions,
		verifier: verifier,
		channels: channels,
		mail:     mail,
		cfg:      cfg,
	}
}

// IssueOtp generates a one-time code for the address and mails it. A live
// code for the same address blocks reissue until it lapses.
func (a *Auth) IssueOtp(ctx context.Context, email string) error {
	prefix := OtpKeyPrefix(PurposeSignIn, email)

	liveUntil, err := a.tokens.LiveByPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	if liveUntil != nil {
		return &TokenNotExpiredError{ExpiresAt: *liveUntil}
	}

	otp, err := gonanoid.Generate(otpCharset, a.cfg.OtpLength)
	if err != nil {
		return fmt.Errorf("failed to generate code, %w", err)
	}

	key := OtpKey(PurposeSignIn, email, otp)
	if err := a.tokens.Issue(ctx, key, PurposeSignIn, a.cfg.OtpTTL); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Your sign-in code is <b>%s</b>.<br><br>It expires in %d minutes. If you didn't request it, ignore this mail.",
		otp, int(a.cfg.OtpTTL.Minutes()))

	if err := a.mail.Send(email, "Your sign-in code", body); err != nil {
		// Roll the token back so the user isn't locked out of a retry by a
		// code they never received.
		if derr := a.tokens.DeleteByHash(ctx, key); derr != nil {
			zap.L().Error("Failed to roll back undelivered code", zap.Error(derr))
		}

		return externalErr("mail delivery", err)
	}

	return nil
}

// VerifyOtp checks a submitted code and signs the user in. A wrong or lapsed
// code reads identically as an invalid token.
func (a *Auth) VerifyOtp(ctx context.Context, email, otp string) (*SignInResult, error) {
	key := OtpKey(PurposeSignIn, email, otp)

	if err := a.tokens.Verify(ctx, key, true); err != nil {
		return nil, err
	}

	return a.finishSignIn(ctx, model.ProfileMeta{Key: model.MetaKeyEmail, Email: email})
}

// NonceChallenge issues a nonce for the client-submitted SIWF variant and
// registers it for replay protection.
func (a *Auth) NonceChallenge(ctx context.Context) (string, error) {
	nonce, err := util.GenerateToken(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce, %w", err)
	}

	if err := a.tokens.Issue(ctx, SIWFNonceKey(nonce), PurposeSignIn, a.cfg.NonceTTL); err != nil {
		return "", err
	}

	return nonce, nil
}

// VerifySIWFNonce validates a client-signed SIWF message. The nonce is
// checked first without consuming it, consumed only once the verifier
// accepts the signature (two-phase consume), and verifier failures surface
// as a generic invalid-token error so nothing about the verifier leaks.
func (a *Auth) VerifySIWFNonce(ctx context.Context, message, signature, nonce string) (*SignInResult, error) {
	key := SIWFNonceKey(nonce)

	if err := a.tokens.Verify(ctx, key, false); err != nil {
		return nil, err
	}

	fid, err := a.verifier.VerifySignInMessage(ctx, message, signature, nonce)
	if err != nil {
		zap.L().Warn("SIWF signature verification failed", zap.Error(err))
		return nil, ErrInvalidToken
	}

	if err := a.tokens.DeleteByHash(ctx, key); err != nil {
		return nil, err
	}

	return a.finishSignIn(ctx, model.ProfileMeta{Key: model.MetaKeyFarcaster, FID: fid})
}

// URLChallenge opens a provider-hosted sign-in channel and wraps its token in
// the registry so abandoned channels lapse like any other challenge.
func (a *Auth) URLChallenge(ctx context.Context) (*Channel, error) {
	channel, err := a.channels.CreateChannel(ctx)
	if err != nil {
		return nil, externalErr("channel create", err)
	}

	if err := a.tokens.Issue(ctx, SIWFURLKey(channel.Token), PurposeSignIn, a.cfg.ChannelTTL); err != nil {
		return nil, err
	}

	return channel, nil
}

// VerifySIWFUrl polls the channel once. Pending channels return
// ErrSignInPending so the client keeps polling; a completed channel is
// consumed and resolved exactly like the nonce variant.
func (a *Auth) VerifySIWFUrl(ctx context.Context, token string) (*SignInResult, error) {
	key := SIWFURLKey(token)

	if err := a.tokens.Verify(ctx, key, false); err != nil {
		return nil, err
	}

	status, err := a.channels.ChannelStatus(ctx, token)
	if err != nil {
		return nil, externalErr("channel status", err)
	}

	if status.State != ChannelStateCompleted {
		return nil, ErrSignInPending
	}

	if status.FID == 0 {
		zap.L().Warn("Completed channel carried no fid", zap.String("state", status.State))
		return nil, ErrInvalidToken
	}

	if err := a.tokens.DeleteByHash(ctx, key); err != nil {
		return nil, err
	}

	return a.finishSignIn(ctx, model.ProfileMeta{Key: model.MetaKeyFarcaster, FID: status.FID})
}

func (a *Auth) finishSignIn(ctx context.Context, meta model.ProfileMeta) (*SignInResult, error) {
	user, err := a.profiles.ResolveOrCreate(ctx, meta)
	if err != nil {
		return nil, err
	}

	session, err := a.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &SignInResult{User: user, Session: session}, nil
}
