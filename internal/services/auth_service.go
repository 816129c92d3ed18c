package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"aether/internal/apperr"
	"aether/internal/mail"
	"aether/internal/models"
	"aether/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration and reset.
const MinPasswordLength = 6

// RegisterInput is the payload of a registration request.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username" validate:"required,min=3,max=20,alphanumunderscore"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithTokenTTL sets how long issued tokens stay valid.
func WithTokenTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) { s.tokenTTL = ttl }
}

// WithPasswordReset enables the forgot/reset flow. Links point at clientURL.
func WithPasswordReset(mailer mail.Mailer, clientURL string, ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		s.mailer = mailer
		s.clientURL = strings.TrimRight(clientURL, "/")
		s.resetTTL = ttl
	}
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo  repositories.UserRepository
	validate  *validator.Validate
	jwtSecret []byte
	tokenTTL  time.Duration

	mailer    mail.Mailer
	clientURL string
	resetTTL  time.Duration

	now func() time.Time
}

// NewAuthService creates a new AuthService. Tokens are valid for seven days unless
// WithTokenTTL says otherwise.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, opts ...AuthOption) *AuthService {
	s := &AuthService{
		userRepo:  userRepo,
		validate:  models.NewValidator(),
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  7 * 24 * time.Hour,
		resetTTL:  time.Hour,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if in.Name == "" || in.Username == "" || in.Email == "" || in.Password == "" {
		return nil, apperr.New(apperr.ErrValidation, "All fields are required")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperr.New(apperr.ErrValidation, "Password must be at least 6 characters")
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, registrationError(err)
	}

	if _, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperr.New(apperr.ErrConflict, "Email already registered")
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}
	if _, err := s.userRepo.GetByUsername(ctx, in.Username); err == nil {
		return nil, apperr.New(apperr.ErrConflict, "Username already taken")
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		Name:     in.Name,
		Username: in.Username,
		Email:    in.Email,
		Password: string(hashedPassword),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			// Lost a race with a concurrent registration.
			return nil, apperr.New(apperr.ErrConflict, "Email or username already registered")
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	log.Printf("User registered: %s", user.Username)
	return &AuthResult{Token: token, User: user.Public()}, nil
}

func registrationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "Username":
			return apperr.New(apperr.ErrValidation, "Username must be 3-20 characters and contain only letters, numbers and underscores")
		case "Email":
			return apperr.New(apperr.ErrValidation, "Please provide a valid email")
		case "Name":
			return apperr.New(apperr.ErrValidation, "Name cannot exceed 100 characters")
		}
	}
	return apperr.New(apperr.ErrValidation, "Invalid registration data")
}

// Login authenticates by username or email. A login containing "@" is treated as an
// email and matched case-insensitively.
func (s *AuthService) Login(ctx context.Context, login, password string) (*AuthResult, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperr.New(apperr.ErrValidation, "Email/Username and password required")
	}

	var (
		user *models.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.userRepo.GetByEmail(ctx, strings.ToLower(login))
	} else {
		user, err = s.userRepo.GetByUsername(ctx, login)
	}
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.New(apperr.ErrUnauthorized, "Invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.New(apperr.ErrUnauthorized, "Invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      now.Add(s.tokenTTL).Unix(),
		"iat":      now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %v: %w", err, apperr.ErrUnauthorized)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		if id, _ := claims["user_id"].(string); id == "" {
			return nil, fmt.Errorf("token without subject: %w", apperr.ErrUnauthorized)
		}
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token: %w", apperr.ErrUnauthorized)
}

// Authenticate validates a token and loads the user it was issued to.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, claims["user_id"].(string))
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.New(apperr.ErrUnauthorized, "User not found")
		}
		return nil, err
	}
	return user, nil
}

// Profile returns the user with the given id.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.New(apperr.ErrNotFound, "User not found")
		}
		return nil, err
	}
	return user, nil
}

// CheckUser reports whether an account exists with the given email or username.
// When both are given, both must match the same account.
func (s *AuthService) CheckUser(ctx context.Context, email, username string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if email == "" && username == "" {
		return nil, apperr.New(apperr.ErrValidation, "Email or username required")
	}

	var (
		user *models.User
		err  error
	)
	if email != "" {
		user, err = s.userRepo.GetByEmail(ctx, email)
	} else {
		user, err = s.userRepo.GetByUsername(ctx, username)
	}
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if username != "" && user.Username != username {
		return nil, nil
	}
	return user, nil
}

// ForgotPassword issues a single-use reset token and mails the link. Unknown emails
// succeed silently so the endpoint cannot be used to probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperr.New(apperr.ErrValidation, "Email is required")
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			log.Printf("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	expires := s.now().Add(s.resetTTL)
	user.ResetPasswordToken = hashToken(token)
	user.ResetPasswordExpires = &expires
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if s.mailer == nil {
		log.Printf("Password reset token issued for %s but no mailer is configured", user.Username)
		return nil
	}
	msg, err := mail.PasswordReset(user.Name, user.Email, s.clientURL+"/reset-password/"+token, s.resetTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

// ResetPassword sets a new password for the holder of a valid, unexpired token.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < MinPasswordLength {
		return apperr.New(apperr.ErrValidation, "Password must be at least 6 characters")
	}
	invalid := apperr.New(apperr.ErrValidation, "Invalid or expired reset token")
	if token == "" {
		return invalid
	}
	user, err := s.userRepo.GetByResetToken(ctx, hashToken(token))
	if err != nil {
		if apperr.IsNotFound(err) {
			return invalid
		}
		return err
	}
	if user.ResetPasswordExpires == nil || s.now().After(*user.ResetPasswordExpires) {
		return invalid
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)
	user.ResetPasswordToken = ""
	user.ResetPasswordExpires = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
