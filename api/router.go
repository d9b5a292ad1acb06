// Package api contains all endpoints available
package api

import (
	"castgate/auth-api/db"
	"castgate/auth-api/farcaster"
	"castgate/auth-api/internal/service"
	"castgate/auth-api/pkg/middleware"
	"fmt"
	"time"

	ginzap "github.com/gin-contrib/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

type API struct {
	DB       *gorm.DB
	Router   *gin.Engine
	Auth     *service.Auth
	Sessions *service.Sessions
	Profiles *service.ProfileLinker
	Signers  *service.Signers
}

func NewRouter() (*API, error) {
	a := &API{}

	conn, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = conn

	makeLogger()

	client := farcaster.NewClient(farcaster.Config{
		APIBaseURL:   viper.GetString("farcaster.api_base_url"),
		RelayBaseURL: viper.GetString("farcaster.relay_base_url"),
		APIKey:       viper.GetString("farcaster.api_key"),
		Timeout:      time.Duration(viper.GetInt("farcaster.timeout_seconds")) * time.Second,
	})

	appSigner, err := farcaster.NewAppSigner(viper.GetString("signer.mnemonic"))
	if err != nil {
		return nil, fmt.Errorf("failed to load the app's custodial account, %w", err)
	}

	zap.L().Debug("Custodial account loaded", zap.String("address", appSigner.Address()))

	mail := service.NewSMTPSender(service.MailConfig{
		Host:     viper.GetString("mail.host"),
		Port:     viper.GetInt("mail.port"),
		From:     viper.GetString("mail.sender_address"),
		Password: viper.GetString("mail.password"),
	})

	day := 24 * time.Hour

	tokens := service.NewTokenRegistry(conn)
	a.Profiles = service.NewProfileLinker(conn)
	a.Sessions = service.NewSessions(conn, service.SessionConfig{
		TTL:             time.Duration(viper.GetInt("session.ttl_days")) * day,
		ExtendThreshold: time.Duration(viper.GetInt("session.extend_threshold_days")) * day,
		Extension:       time.Duration(viper.GetInt("session.extension_days")) * day,
	})
	a.Signers = service.NewSigners(conn, client, appSigner, service.SignerConfig{
		AppFID:      viper.GetUint64("signer.app_fid"),
		ApprovalTTL: time.Duration(viper.GetInt("signer.approval_ttl_hours")) * time.Hour,
	})
	a.Auth = service.NewAuth(tokens, a.Profiles, a.Sessions, client, client, mail, service.AuthConfig{
		OtpTTL:     time.Duration(viper.GetInt("auth.otp_ttl_minutes")) * time.Minute,
		OtpLength:  viper.GetInt("auth.otp_length"),
		NonceTTL:   time.Duration(viper.GetInt("auth.nonce_ttl_minutes")) * time.Minute,
		ChannelTTL: time.Duration(viper.GetInt("auth.channel_ttl_minutes")) * time.Minute,
	})

	if _, err := service.StartSweeps(viper.GetString("maintenance.sweep_schedule"), a.Sessions, tokens); err != nil {
		return nil, fmt.Errorf("failed to schedule expiry sweeps, %w", err)
	}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	session := middleware.NewSessionMiddleware(a.Sessions)

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// HEAD /api/validate		-> Validates an access token
		main.HEAD("/validate", session, a.Validate)
	}

	auth := main.Group("/auth",
		middleware.BodySizeLimiter(1<<20),
		middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		}),
	)
	{
		// POST /api/auth/otp			-> Mails a one-time sign-in code
		auth.POST("/otp", a.AuthOtpIssue)

		// POST /api/auth/otp/verify		-> Exchanges a code for a session
		auth.POST("/otp/verify", a.AuthOtpVerify)

		// GET /api/auth/siwf/nonce		-> Issues a SIWF nonce challenge
		auth.GET("/siwf/nonce", a.AuthSIWFNonce)

		// POST /api/auth/siwf/nonce/verify	-> Verifies a client-signed message
		auth.POST("/siwf/nonce/verify", a.AuthSIWFNonceVerify)

		// GET /api/auth/siwf/url		-> Opens a hosted sign-in channel
		auth.GET("/siwf/url", a.AuthSIWFURL)

		// POST /api/auth/siwf/url/verify	-> Polls the channel for approval
		auth.POST("/siwf/url/verify", a.AuthSIWFURLVerify)

		// POST /api/auth/logout		-> Destroys the current session
		auth.POST("/logout", session, a.AuthLogout)
	}

	users := main.Group("/users", session)
	{
		// GET /api/users/me		-> Returns the current user and their profiles
		users.GET("/me", a.UserFetch)
	}

	signers := main.Group("/signers", session, middleware.BodySizeLimiter(1<<20))
	{
		// POST /api/signers			-> Allocates a delegated signer
		signers.POST("", a.SignerCreate)

		// POST /api/signers/:uuid/register	-> Signs and submits the key request
		signers.POST("/:uuid/register", a.SignerRegister)

		// GET /api/signers/:uuid		-> Reports the signer's live status
		signers.GET("/:uuid", a.SignerStatus)
	}

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
