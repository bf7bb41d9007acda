package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/auth"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/repomanager"
)

// Mailer delivers verification links.
type Mailer interface {
	SendVerification(ctx context.Context, to, token string) error
}

// AvatarStore persists avatar images and returns their public URL.
type AvatarStore interface {
	Upload(ctx context.Context, userID, contentType string, body io.Reader, size int64) (string, error)
}

var allowedAvatarTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// UserService implements registration, login, token lifecycle, email
// verification and avatars.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	signer      *auth.TokenSigner
	hasher      *auth.PasswordHasher
	codec       *auth.VerificationCodec
	mailer      Mailer
	avatars     AvatarStore
	logger      logging.Logger

	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	verificationMaxAge           time.Duration
	mailTimeout                  time.Duration
	uploadTimeout                time.Duration
	maxAvatarSize                int64

	// dummyHash keeps the unknown-email path as slow as a real mismatch.
	dummyHash string
	now       func() time.Time
	mailWG    sync.WaitGroup
}

// NewUserService builds the service from cfg. It fails on an unsupported
// JWT algorithm or password scheme.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	mailer Mailer, avatars AvatarStore, logger logging.Logger) (*UserService, error) {

	signer, err := auth.NewTokenSigner([]byte(cfg.SecretKey), cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	hasher, err := auth.NewPasswordHasher(cfg.PasswordSchemes, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	dummyPassword, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, err
	}

	return &UserService{
		db:                           db,
		repomanager:                  m,
		signer:                       signer,
		hasher:                       hasher,
		codec:                        auth.NewVerificationCodec([]byte(cfg.SecretKey), cfg.VerificationSalt),
		mailer:                       mailer,
		avatars:                      avatars,
		logger:                       logger.With("module", "users"),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		verificationMaxAge:           cfg.VerificationMaxAge,
		mailTimeout:                  cfg.MailTimeout,
		uploadTimeout:                cfg.UploadTimeout,
		maxAvatarSize:                cfg.MaxAvatarSize,
		dummyHash:                    dummyHash,
		now:                          time.Now,
	}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	a, err := mail.ParseAddress(email)
	if err != nil || a.Address != email {
		return "", fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	return email, nil
}

// Register creates an unverified account and sends the verification email
// in the background. The caller never waits on SMTP.
func (s *UserService) Register(ctx context.Context, email, username, password string) (*models.User, error) {
	user, err := s.CreateUser(ctx, email, username, password, false)
	if err != nil {
		return nil, err
	}

	s.dispatchVerification(ctx, user.Email)
	return user, nil
}

// CreateUser validates input, hashes the password and inserts the account.
// An existing email yields common.ErrorConflict.
func (s *UserService) CreateUser(ctx context.Context, email, username, password string, verified bool) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)

	_, err = repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrorConflict
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error checking email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		IsVerified:   verified,
	}
	if u := strings.TrimSpace(username); u != "" {
		user.UserName = &u
	}

	// the unique constraint decides concurrent registrations
	user, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user created", "user_id", user.ID, "verified", user.IsVerified)
	return user, nil
}

func (s *UserService) dispatchVerification(ctx context.Context, email string) {
	token, err := s.codec.Issue(email)
	if err != nil {
		s.logger.Error(ctx, "verification token not issued", "error", err)
		return
	}

	s.mailWG.Add(1)
	go func() {
		defer s.mailWG.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.mailTimeout)
		defer cancel()

		if err := s.mailer.SendVerification(ctx, email, token); err != nil {
			s.logger.Error(ctx, "verification email failed", "to", email, "error", err)
			return
		}
		s.logger.Debug(ctx, "verification email sent", "to", email)
	}()
}

// WaitMail blocks until background verification emails have finished.
func (s *UserService) WaitMail() {
	s.mailWG.Wait()
}

// Authenticate returns the user when password matches. Unknown email and
// wrong password both yield common.ErrorUnauthorized. Hashes made with a
// deprecated scheme are upgraded on success.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: error loading user: %w", common.ErrorInternal, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		if hash, err := s.hasher.Hash(password); err == nil {
			if err := repo.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
				s.logger.Warn(ctx, "password rehash not stored", "user_id", user.ID, "error", err)
			} else {
				user.PasswordHash = hash
			}
		}
	}

	return user, nil
}

// IssueSessionToken returns a bearer token whose subject is the user's email.
func (s *UserService) IssueSessionToken(user *models.User) (string, error) {
	return s.signer.Issue(user.Email, s.accessTokenValidityDuration)
}

// Login authenticates the user and issues an access and refresh token pair.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return s.generateTokenPair(ctx, s.db, user)
}

func (s *UserService) generateRefreshToken() (string, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *UserService) generateTokenPair(ctx context.Context, db dbx.DBTX, user *models.User) (*models.TokenPair, error) {
	accessToken, err := s.IssueSessionToken(user)
	if err != nil {
		return nil, fmt.Errorf("%w: error signing access token: %w", common.ErrorInternal, err)
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("%w: error generating refresh token: %w", common.ErrorInternal, err)
	}

	err = s.repomanager.RefreshTokens(db).Create(ctx, user.ID, refreshToken, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: error storing refresh token: %w", common.ErrorInternal, err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		TokenType:    common.TokenTypeBearer,
		RefreshToken: refreshToken,
	}, nil
}

// RefreshToken redeems a refresh token for a new token pair. The old
// refresh token is consumed in the same transaction that stores the new one.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	var tokenPair *models.TokenPair

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error consuming refresh token: %w", err)
		}

		if token.Expires.Before(s.now()) {
			return common.ErrRefreshTokenExpired
		}

		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error loading user: %w", err)
		}

		tokenPair, err = s.generateTokenPair(ctx, tx, user)
		return err
	})

	if err != nil {
		return nil, err
	}

	return tokenPair, nil
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error revoking refresh token: %w", err)
	}
	return nil
}

// ResolveCurrentUser maps a bearer token to its user. Invalid tokens and
// tokens of deleted users yield common.ErrorUnauthorized.
func (s *UserService) ResolveCurrentUser(ctx context.Context, token string) (*models.User, error) {
	email, err := s.signer.Validate(token)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("%w: error loading user: %w", common.ErrorInternal, err)
	}

	return user, nil
}

// IssueVerificationToken returns a fresh email verification token.
func (s *UserService) IssueVerificationToken(email string) (string, error) {
	return s.codec.Issue(email)
}

// CompleteVerification redeems an email verification token. Redeeming a
// token for an already verified account returns that account unchanged.
func (s *UserService) CompleteVerification(ctx context.Context, token string) (*models.User, error) {
	email, err := s.codec.Validate(token, s.verificationMaxAge)
	if err != nil {
		return nil, common.ErrInvalidVerificationToken
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if user.IsVerified {
		return user, nil
	}

	user, err = repo.SetVerified(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error verifying user: %w", err)
	}

	s.logger.Info(ctx, "email verified", "user_id", user.ID)
	return user, nil
}

// UploadAvatar stores a JPEG or PNG image as the user's avatar. Both the
// declared content type and the sniffed bytes must be an allowed image type.
func (s *UserService) UploadAvatar(ctx context.Context, user *models.User, contentType string, body io.Reader) (*models.User, error) {
	if !allowedAvatarTypes[contentType] {
		return nil, common.ErrInvalidContentType
	}

	data, err := io.ReadAll(io.LimitReader(body, s.maxAvatarSize+1))
	if err != nil {
		return nil, fmt.Errorf("error reading avatar: %w", err)
	}
	if int64(len(data)) > s.maxAvatarSize {
		return nil, fmt.Errorf("%w: file is larger than %d bytes", common.ErrorValidation, s.maxAvatarSize)
	}
	if http.DetectContentType(data) != contentType {
		return nil, common.ErrInvalidContentType
	}

	uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	url, err := s.avatars.Upload(uploadCtx, user.ID, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("error uploading avatar: %w", err)
	}

	updated, err := s.repomanager.Users(s.db).UpdateAvatar(ctx, user.ID, url)
	if err != nil {
		return nil, fmt.Errorf("error saving avatar: %w", err)
	}

	return updated, nil
}
