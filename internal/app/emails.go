/**
 * @description
 * This file renders the three transactional emails the service sends:
 * the confirmation request, the post-confirmation welcome, and the
 * new-post notification. Bodies are rendered with html/template so
 * user-provided names cannot inject markup.
 */
package app

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/rabbithole/newsletter-service/internal/domain"
	"github.com/rabbithole/newsletter-service/pkg/mailer"
)

const postExcerptLength = 200

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`
<div style="font-family: Arial, sans-serif; padding: 20px;">
  <h2>Confirm your subscription 🐇</h2>
  <p>Hi <strong>{{.FirstName}}</strong>,</p>
  <p>Click the link below to confirm your subscription to RabbitHole Journals:</p>
  <p><a href="{{.ConfirmationLink}}" style="color: #ff6c17;">Confirm Subscription</a></p>
  <p style="color: #888; font-size: 14px;">This link will expire in 30 minutes.</p>
  <p>If you didn't request this, just ignore this message.</p>
</div>`))

var welcomeTmpl = template.Must(template.New("welcome").Parse(`
<div style="font-family: Arial, sans-serif; background-color: #f5f5f5; padding: 30px;">
  <div style="max-width: 600px; margin: auto; background: white; border-radius: 10px; padding: 30px;">
    <h2 style="color: #ff6c17; text-align: center;">Welcome to RabbitHole 🐇</h2>
    <p style="font-size: 16px; color: #333;">
      Hi <strong>{{.FirstName}} {{.LastName}}</strong>,
    </p>
    <p style="font-size: 16px; color: #333;">
      Thanks a lot for subscribing to RabbitHole! We're thrilled to have you in the warren.
    </p>
    <p style="font-size: 16px; color: #333;">
      We'll keep you posted with updates, surprises, and exciting things from deep down the hole. 🔍✨
    </p>
    <hr style="margin: 30px 0; border: none; border-top: 1px solid #ddd;">
    <p style="font-size: 14px; color: #777; text-align: center;">
      If you ever want to hop out...<br>
      <a href="{{.UnsubscribeLink}}" style="color: #ff6c17; font-weight: bold;">Unsubscribe</a>
    </p>
  </div>
</div>`))

var newPostTmpl = template.Must(template.New("newPost").Parse(`
<div style="font-family: Arial, sans-serif; padding: 20px;">
  <h2 style="color: #ff6c17;">🐇 New Post: {{.Title}}</h2>
  <p>{{.Excerpt}}</p>
  <p><a href="{{.PostsLink}}" style="color: #ff6c17;">Read more on RabbitHole</a></p>
  <p style="font-size: 14px; color: #777;">You received this email because you subscribed to RabbitHole Journals.</p>
</div>`))

// confirmationEmail builds the message that carries the confirmation link.
func confirmationEmail(pending domain.PendingSubscriber, backendURL, token string) (mailer.Message, error) {
	data := struct {
		FirstName        string
		ConfirmationLink string
	}{
		FirstName:        pending.FirstName,
		ConfirmationLink: fmt.Sprintf("%s/confirm/%s", backendURL, token),
	}

	var body strings.Builder
	if err := confirmationTmpl.Execute(&body, data); err != nil {
		return mailer.Message{}, fmt.Errorf("failed to render confirmation email: %w", err)
	}

	return mailer.Message{
		To:       pending.Email,
		ToName:   pending.FirstName,
		Subject:  "Confirm your subscription",
		HTMLBody: body.String(),
	}, nil
}

// welcomeEmail builds the message sent right after a confirmed promotion.
func welcomeEmail(sub domain.Subscriber, frontendURL string) (mailer.Message, error) {
	data := struct {
		FirstName       string
		LastName        string
		UnsubscribeLink string
	}{
		FirstName:       sub.FirstName,
		LastName:        sub.LastName,
		UnsubscribeLink: fmt.Sprintf("%s/unsubscribe?token=%s", frontendURL, sub.UnsubscribeToken),
	}

	var body strings.Builder
	if err := welcomeTmpl.Execute(&body, data); err != nil {
		return mailer.Message{}, fmt.Errorf("failed to render welcome email: %w", err)
	}

	return mailer.Message{
		To:       sub.Email,
		ToName:   sub.FirstName,
		Subject:  "Welcome to RabbitHole 🐇",
		HTMLBody: body.String(),
	}, nil
}

// newPostEmail builds the notification for one subscriber about one post.
func newPostEmail(sub domain.Subscriber, post domain.Post, frontendURL string) (mailer.Message, error) {
	data := struct {
		Title     string
		Excerpt   string
		PostsLink string
	}{
		Title:     post.Title,
		Excerpt:   excerpt(post.Content, postExcerptLength),
		PostsLink: frontendURL + "/posts",
	}

	var body strings.Builder
	if err := newPostTmpl.Execute(&body, data); err != nil {
		return mailer.Message{}, fmt.Errorf("failed to render post notification: %w", err)
	}

	return mailer.Message{
		To:       sub.Email,
		ToName:   sub.FirstName,
		Subject:  "New Post: " + post.Title,
		HTMLBody: body.String(),
	}, nil
}

// excerpt returns the first limit runes of content followed by an ellipsis.
func excerpt(content string, limit int) string {
	runes := []rune(content)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes) + "..."
}
