package user

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"wishwell/internal/apperr"
	"wishwell/internal/ledger"
	"wishwell/internal/model"
	"wishwell/internal/store"
)

// RegistrationBonus is credited to every new account, with a matching ledger
// entry.
const RegistrationBonus = 100

// InvitationBonus is credited to the inviter when a referred account signs up.
const InvitationBonus = 50

const favoriteReputationDelta = 5

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// InvitedBy is the referring user's username, if any.
	InvitedBy string `json:"invited_by,omitempty"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ID          string `json:"id"`
	Username    string `json:"username"`
}

// Profile is a user with the derived level attached.
type Profile struct {
	*model.User
	Level int `json:"level"`
}

type Service struct {
	store     store.Store
	ledger    *ledger.Service
	jwtSecret string
	log       zerolog.Logger
}

type claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewService(st store.Store, ledgerService *ledger.Service, secret string, log zerolog.Logger) *Service {
	return &Service{store: st, ledger: ledgerService, jwtSecret: secret, log: log}
}

// Register creates the account and credits the registration bonus in one
// transaction.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperr.InvalidArg("username and password are required")
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("hashing password failed", err)
	}

	u := &model.User{
		ID:       uuid.NewString(),
		Username: req.Username,
		Password: string(hashedPwd),
	}

	err = s.store.WithTx(ctx, func(ts store.Store) error {
		if err := ts.Users().Create(ctx, u); err != nil {
			return err
		}
		if err := ts.Users().AdjustBalance(ctx, u.ID, RegistrationBonus); err != nil {
			return err
		}
		return ts.Ledger().Append(ctx, &model.Transaction{
			UserID: u.ID,
			Amount: RegistrationBonus,
			Type:   model.TxRegistrationBonus,
		})
	})
	if err != nil {
		return nil, err
	}

	// The inviter's credit is best-effort; a bad referral never fails the
	// registration itself.
	if req.InvitedBy != "" {
		s.creditInviter(ctx, req.InvitedBy, u.ID)
	}

	u.Coins = RegistrationBonus
	u.Password = ""
	return u, nil
}

func (s *Service) creditInviter(ctx context.Context, inviterName, invitedID string) {
	inviter, err := s.store.Users().GetByUsername(ctx, inviterName)
	if err != nil {
		s.log.Warn().Str("inviter", inviterName).Msg("referral names an unknown inviter")
		return
	}
	if err := s.ledger.InvitationBonus(ctx, inviter.ID, InvitationBonus, invitedID); err != nil {
		s.log.Error().Err(err).Str("inviter", inviter.ID).Msg("invitation bonus failed")
	}
}

func (s *Service) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	u, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ID:       u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "wishwell",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	})

	ss, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, apperr.Internal("signing token failed", err)
	}

	return &LoginResponse{AccessToken: ss, ID: u.ID, Username: u.Username}, nil
}

func (s *Service) ValidateToken(tokenString string) (string, string, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "", apperr.Unauthenticated("invalid token")
	}
	return c.ID, c.Username, nil
}

// Profile returns the user with their level derived from coins and
// reputation.
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Password = ""
	return &Profile{User: u, Level: u.Level()}, nil
}

// ToggleFavorite flips the caller's favorite mark on a wish, moving the
// wish's like count and its creator's reputation with it. Returns whether the
// wish is now favorited.
func (s *Service) ToggleFavorite(ctx context.Context, userID, wishID string) (bool, error) {
	wish, err := s.store.Wishes().GetByID(ctx, wishID)
	if err != nil {
		return false, err
	}

	var favorited bool
	err = s.store.WithTx(ctx, func(ts store.Store) error {
		has, err := ts.Users().HasFavorite(ctx, userID, wishID)
		if err != nil {
			return err
		}

		if has {
			if err := ts.Users().RemoveFavorite(ctx, userID, wishID); err != nil {
				return err
			}
			if err := ts.Wishes().AdjustLikeCount(ctx, wishID, -1); err != nil {
				return err
			}
			return ts.Users().AdjustReputation(ctx, wish.CreatorID, -favoriteReputationDelta)
		}

		favorited = true
		if err := ts.Users().AddFavorite(ctx, userID, wishID); err != nil {
			return err
		}
		if err := ts.Wishes().AdjustLikeCount(ctx, wishID, 1); err != nil {
			return err
		}
		return ts.Users().AdjustReputation(ctx, wish.CreatorID, favoriteReputationDelta)
	})
	return favorited, err
}

// Leaderboard returns the top users by reputation, levels included.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]*Profile, error) {
	users, err := s.store.Users().Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*Profile, 0, len(users))
	for _, u := range users {
		u.Password = ""
		out = append(out, &Profile{User: u, Level: u.Level()})
	}
	return out, nil
}
