package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resendlabs/resend-go"
)

// ResendEmailSender delivers verification mail through Resend. With no API
// key it stays unconfigured and every send fails loudly rather than
// silently dropping mail.
type ResendEmailSender struct {
	client     *resend.Client
	From       string
	AppBaseURL string
	VerifyPath string
	ResetPath  string
}

func NewResendEmailSender(apiKey string, from string, appBaseURL string) *ResendEmailSender {
	sender := &ResendEmailSender{
		From:       from,
		AppBaseURL: strings.TrimRight(appBaseURL, "/"),
		VerifyPath: "/verify-email",
		ResetPath:  "/reset-password",
	}
	if strings.TrimSpace(apiKey) != "" && strings.TrimSpace(from) != "" {
		sender.client = resend.NewClient(apiKey)
	}
	return sender
}

func (s *ResendEmailSender) SendVerificationEmail(ctx context.Context, email string, token string) error {
	if s.client == nil {
		return errors.New("email sender not configured")
	}
	link := s.buildURL(s.VerifyPath, token)
	params := &resend.SendEmailRequest{
		From:    s.From,
		To:      []string{email},
		Subject: "Outdoor Tracker: Verify Your Email Address",
		Html: fmt.Sprintf(
			"<p>Thank you for registering with Outdoor Tracker. Click below to verify your email address:</p>"+
				"<p><a href=\"%s\">Verify Email Address</a></p>"+
				"<p>This link will expire in 24 hours. If you didn't request this email, you can safely ignore it.</p>",
			link),
		Text: fmt.Sprintf("Verify your email address: %s (expires in 24 hours)", link),
	}
	_, err := s.client.Emails.Send(params)
	return err
}

func (s *ResendEmailSender) SendPasswordResetEmail(ctx context.Context, email string, token string) error {
	if s.client == nil {
		return errors.New("email sender not configured")
	}
	link := s.buildURL(s.ResetPath, token)
	params := &resend.SendEmailRequest{
		From:    s.From,
		To:      []string{email},
		Subject: "Outdoor Tracker: Reset Your Password",
		Html: fmt.Sprintf(
			"<p>We received a request to reset your Outdoor Tracker password. Click below to choose a new one:</p>"+
				"<p><a href=\"%s\">Reset Password</a></p>"+
				"<p>This link will expire in 30 minutes. If you didn't request a reset, you can safely ignore this email.</p>",
			link),
		Text: fmt.Sprintf("Reset your password: %s (expires in 30 minutes)", link),
	}
	_, err := s.client.Emails.Send(params)
	return err
}

func (s *ResendEmailSender) buildURL(path string, token string) string {
	if s.AppBaseURL == "" {
		return token
	}
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s%s?token=%s", s.AppBaseURL, path, token)
}
