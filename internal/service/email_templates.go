package service

import (
	"fmt"

	"github.com/templui/authcore/internal/model"
)

func welcomeEmailTemplate(name, profileURL, appName string) (string, string) {
	subject := fmt.Sprintf("Welcome to %s!", appName)
	body := fmt.Sprintf(`Hi %s,

Your account is ready.

Review your profile: %s

If you have questions, reach out to our support team.

Best,
The %s Team`, name, profileURL, appName)

	return subject, body
}

func accountLinkedEmailTemplate(name, provider, appName string) (string, string) {
	subject := fmt.Sprintf("%s sign-in linked to your %s account", provider, appName)
	body := fmt.Sprintf(`Hi %s,

You can now sign in to %s with %s. Your existing email and password keep working.

If this wasn't you, contact our support team immediately.

Best,
The %s Team`, name, appName, provider, appName)

	return subject, body
}

func providerLabel(provider string) string {
	switch provider {
	case model.ProviderGoogle:
		return "Google"
	default:
		return provider
	}
}
