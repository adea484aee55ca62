package accountd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/defi-staking/gateway/internal/account"
	"github.com/defi-staking/gateway/internal/auth"
	"github.com/defi-staking/gateway/internal/linking"
	"github.com/defi-staking/gateway/internal/models"
	"github.com/defi-staking/gateway/internal/wallet"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// ErrValidation marks caller mistakes that map to 400 responses.
var ErrValidation = errors.New("validation failed")

// Service holds the account business rules. redis is optional: without it
// the one-time proof guard degrades to the timestamp window alone.
type Service struct {
	repo        *AccountRepo
	redis       *redis.Client
	log         *zap.Logger
	jwtSecret   string
	jwtExp      time.Duration
	proofMaxAge time.Duration
}

func NewService(repo *AccountRepo, rdb *redis.Client, jwtSecret string, jwtExp, proofMaxAge time.Duration, log *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		redis:       rdb,
		log:         log,
		jwtSecret:   jwtSecret,
		jwtExp:      jwtExp,
		proofMaxAge: proofMaxAge,
	}
}

func (s *Service) Signup(ctx context.Context, email, password, username string, bio *string) (*models.Account, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)
	if !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("%w: invalid email", ErrValidation)
	}
	if len(password) < 6 {
		return nil, "", fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	if username == "" {
		return nil, "", fmt.Errorf("%w: username is required", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	acct, err := s.repo.Create(ctx, email, string(hash), username, bio)
	if err != nil {
		return nil, "", err
	}

	token, err := auth.GenerateJWT(&acct.ID, "", "account", s.jwtSecret, s.jwtExp)
	if err != nil {
		return nil, "", err
	}

	s.log.Info("account created",
		zap.String("id", acct.ID.String()),
		zap.String("username", acct.Username),
	)
	return acct, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*models.Account, string, error) {
	acct, hash, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, "", account.ErrInvalidCredentials
	}

	token, err := auth.GenerateJWT(&acct.ID, "", "account", s.jwtSecret, s.jwtExp)
	if err != nil {
		return nil, "", err
	}
	return acct, token, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, username, bio *string) (*models.Account, error) {
	if username != nil && strings.TrimSpace(*username) == "" {
		return nil, fmt.Errorf("%w: username cannot be empty", ErrValidation)
	}
	return s.repo.UpdateProfile(ctx, id, username, bio)
}

// LinkWallet verifies the signed challenge and binds the recovered address
// to the account. Each proof is single-use.
func (s *Service) LinkWallet(ctx context.Context, id uuid.UUID, proof linking.Proof) error {
	if err := linking.VerifyProof(proof, s.proofMaxAge); err != nil {
		return fmt.Errorf("%w: invalid link proof: %v", ErrValidation, err)
	}
	if err := s.consumeProof(ctx, proof.Signature); err != nil {
		return err
	}
	return s.repo.LinkWallet(ctx, id, wallet.ChecksumAddress(proof.Address))
}

// consumeProof marks a proof as seen for the length of the replay window.
func (s *Service) consumeProof(ctx context.Context, signature string) error {
	if s.redis == nil {
		return nil
	}
	sum := sha256.Sum256([]byte(signature))
	key := "linkproof:" + hex.EncodeToString(sum[:])

	ok, err := s.redis.SetNX(ctx, key, 1, s.proofMaxAge).Result()
	if err != nil {
		// Деградируем до проверки по timestamp, линковку не блокируем.
		s.log.Warn("proof replay guard unavailable", zap.Error(err))
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: link proof already used", ErrValidation)
	}
	return nil
}

func (s *Service) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	exists, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (s *Service) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.repo.GetByID(ctx, id)
}
