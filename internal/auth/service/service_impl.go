package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/cablebill/cablebill/internal/auth/domain"
	"github.com/cablebill/cablebill/internal/auth/password"
	"github.com/cablebill/cablebill/internal/auth/token"
	"github.com/cablebill/cablebill/internal/clock"
	"github.com/cablebill/cablebill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,63}$`)
	phonePattern    = regexp.MustCompile(`^[0-9]{10}$`)
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   domain.Repository
	Tokens *token.Issuer
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   domain.Repository
	tokens *token.Issuer
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("auth.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		tokens: p.Tokens,
	}
}

// Register creates an operator account. A nil actor is a trusted internal
// caller such as the bootstrap seed or the CLI; otherwise only admins may
// register users.
func (s *Service) Register(ctx context.Context, actor *domain.Principal, req domain.RegisterRequest) (*domain.User, error) {
	if actor != nil && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if !usernamePattern.MatchString(username) {
		return nil, domain.ErrInvalidUsername
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return nil, domain.ErrInvalidRole
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Username:     username,
		Name:         name,
		Email:        email,
		Phone:        phone,
		Role:         role,
		PasswordHash: hashed,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}

	s.log.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		return nil, domain.ErrInvalidUsername
	}
	if req.Password == "" {
		return nil, domain.ErrInvalidPassword
	}

	user, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := password.Verify(req.Password, user.PasswordHash)
	if err != nil {
		s.log.Error("stored password hash is unreadable", zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, domain.ErrInvalidCredentials
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}

	raw, expiresAt, err := s.tokens.Issue(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in", zap.String("user_id", user.ID.String()))
	return &domain.LoginResult{User: user, Token: raw, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to its user. The role is read from
// the user record, so role changes and deactivation apply immediately.
func (s *Service) Authenticate(ctx context.Context, raw string) (*domain.Principal, error) {
	claims, err := s.tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	userID, err := snowflake.ParseString(claims.UserID)
	if err != nil || userID <= 0 {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrInvalidToken
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}
	return &domain.Principal{UserID: user.ID, Role: user.Role}, nil
}

func (s *Service) Me(ctx context.Context, actor domain.Principal) (*domain.User, error) {
	return s.find(ctx, s.db, actor.UserID)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, s.db, userID)
}

func (s *Service) List(ctx context.Context) ([]*domain.User, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) Update(ctx context.Context, actor domain.Principal, req domain.UpdateUserRequest) (*domain.User, error) {
	userID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	self := actor.UserID == userID
	if !actor.IsAdmin() && !self {
		return nil, domain.ErrForbidden
	}
	if !actor.IsAdmin() && (req.Role != nil || req.Active != nil) {
		return nil, domain.ErrForbidden
	}

	var updated *domain.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.find(ctx, tx, userID)
		if err != nil {
			return err
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			user.Name = name
		}
		if req.Email != nil {
			if user.Email, err = normalizeEmail(*req.Email); err != nil {
				return err
			}
		}
		if req.Phone != nil {
			if user.Phone, err = normalizePhone(*req.Phone); err != nil {
				return err
			}
		}
		if req.Role != nil {
			role, ok := domain.ParseRole(*req.Role)
			if !ok {
				return domain.ErrInvalidRole
			}
			user.Role = role
		}
		if req.Active != nil {
			if self && !*req.Active {
				return domain.ErrCannotDeactivateSelf
			}
			user.Active = *req.Active
		}
		if req.Password != nil {
			if user.PasswordHash, err = hashPassword(*req.Password); err != nil {
				return err
			}
		}

		user.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, user); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrUserExists
			}
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user updated",
		zap.String("user_id", updated.ID.String()),
		zap.String("actor_id", actor.UserID.String()),
	)
	return updated, nil
}

func (s *Service) SetActive(ctx context.Context, actor domain.Principal, id string, active bool) (*domain.User, error) {
	userID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if actor.UserID == userID && !active {
		return nil, domain.ErrCannotDeactivateSelf
	}

	var updated *domain.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.find(ctx, tx, userID)
		if err != nil {
			return err
		}
		user.Active = active
		user.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user active state changed",
		zap.String("user_id", updated.ID.String()),
		zap.Bool("active", active),
		zap.String("actor_id", actor.UserID.String()),
	)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor domain.Principal, id string) error {
	userID, err := parseID(id)
	if err != nil {
		return err
	}
	if actor.UserID == userID {
		return domain.ErrCannotDeleteSelf
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.find(ctx, tx, userID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, userID)
	})
	if err != nil {
		return err
	}

	s.log.Info("user deleted", zap.String("user_id", userID.String()), zap.String("actor_id", actor.UserID.String()))
	return nil
}

func (s *Service) find(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func hashPassword(plain string) (string, error) {
	hashed, err := password.Hash(plain)
	if errors.Is(err, password.ErrTooShort) {
		return "", domain.ErrInvalidPassword
	}
	return hashed, err
}

func normalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if email == "" {
		return "", nil
	}
	at := strings.Index(email, "@")
	if at <= 0 || !strings.Contains(email[at+1:], ".") {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

func normalizePhone(value string) (string, error) {
	phone := strings.TrimSpace(value)
	if phone == "" {
		return "", nil
	}
	if !phonePattern.MatchString(phone) {
		return "", domain.ErrInvalidPhone
	}
	return phone, nil
}
