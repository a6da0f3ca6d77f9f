package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/sirupsen/logrus"
)

// Mailer sends transactional email through AWS SES.
type Mailer struct {
	client *ses.SES
	sender string
}

// NewMailer creates an SES-backed mailer. The sender address must be
// verified in SES for the configured region.
func NewMailer(region string) (*Mailer, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	sender := os.Getenv("SES_SENDER_ADDRESS")
	if sender == "" {
		sender = "no-reply@people-ops.local"
	}

	return &Mailer{
		client: ses.New(sess),
		sender: sender,
	}, nil
}

// InvitationEmail carries everything the invite template needs.
type InvitationEmail struct {
	To               string
	RecipientName    string
	OrganizationName string
	InvitedRole      string
	InviteLink       string
	SenderName       string
	ExpiresAt        time.Time
}

// SendInvitation emails an organization invite link.
func (m *Mailer) SendInvitation(email InvitationEmail) error {
	subject := fmt.Sprintf("You're invited to join %s", email.OrganizationName)
	body := fmt.Sprintf(
		"Hi %s,\n\n%s has invited you to join %s as %s.\n\n"+
			"Accept your invitation:\n%s\n\n"+
			"This link expires on %s.\n",
		email.RecipientName,
		email.SenderName,
		email.OrganizationName,
		email.InvitedRole,
		email.InviteLink,
		email.ExpiresAt.Format(time.RFC1123),
	)

	_, err := m.client.SendEmail(&ses.SendEmailInput{
		Source: aws.String(m.sender),
		Destination: &ses.Destination{
			ToAddresses: []*string{aws.String(email.To)},
		},
		Message: &ses.Message{
			Subject: &ses.Content{Data: aws.String(subject)},
			Body: &ses.Body{
				Text: &ses.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send invitation email: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"to":           email.To,
		"organization": email.OrganizationName,
	}).Info("Invitation email sent")
	return nil
}
