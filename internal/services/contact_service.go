package services

import (
	"context"
	"fmt"
	"strings"

	"aether/internal/apperr"
	"aether/internal/mail"
	"aether/internal/models"

	"github.com/go-playground/validator/v10"
)

// ContactInput is a contact form submission.
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ContactService relays contact form submissions to the shop inbox.
type ContactService struct {
	mailer   mail.Mailer
	validate *validator.Validate
}

// NewContactService creates a new ContactService.
func NewContactService(mailer mail.Mailer) *ContactService {
	return &ContactService{mailer: mailer, validate: models.NewValidator()}
}

// Submit mails the submission to the shop and a confirmation to the sender.
func (s *ContactService) Submit(ctx context.Context, in ContactInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if in.Name == "" || in.Email == "" || in.Message == "" {
		return apperr.New(apperr.ErrValidation, "All fields are required.")
	}
	if err := s.validate.Var(in.Email, "email"); err != nil {
		return apperr.New(apperr.ErrValidation, "Please provide a valid email")
	}

	if err := s.mailer.Send(ctx, mail.ContactAdmin(s.mailer.Inbox(), in.Name, in.Email, in.Message)); err != nil {
		return fmt.Errorf("failed to relay contact message: %w", err)
	}
	confirmation, err := mail.ContactConfirmation(in.Name, in.Email, in.Message)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, confirmation); err != nil {
		return fmt.Errorf("failed to send contact confirmation: %w", err)
	}
	return nil
}
