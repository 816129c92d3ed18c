package services_test

import (
	"context"
	"testing"

	"aether/internal/apperr"
	"aether/internal/mail"
	"aether/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactService_Submit(t *testing.T) {
	mailer := &mail.LogMailer{InboxAddr: "shop@aether.test"}
	service := services.NewContactService(mailer)

	err := service.Submit(context.Background(), services.ContactInput{Name: "Ana", Email: "ana@example.com"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "All fields are required.", err.Error())

	err = service.Submit(context.Background(), services.ContactInput{Name: "Ana", Email: "ana", Message: "hi"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, mailer.Sent())

	require.NoError(t, service.Submit(context.Background(), services.ContactInput{
		Name: " Ana ", Email: "ana@example.com", Message: "Is the corset available in S?",
	}))
	sent := mailer.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "shop@aether.test", sent[0].To)
	assert.Equal(t, "ana@example.com", sent[0].ReplyTo)
	assert.Equal(t, "ana@example.com", sent[1].To)
}
