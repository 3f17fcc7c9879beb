package auth

import (
	"fmt"
	"strings"
)

// SanitizeAccount returns a copy of the account with secrets masked, safe
// to print in listings and logs.
func SanitizeAccount(account *Account) *Account {
	sanitized := *account
	sanitized.CookieHeader = maskSecret(account.CookieHeader)
	sanitized.AccessToken = maskSecret(account.AccessToken)
	return &sanitized
}

// maskSecret keeps just enough of a secret to recognize it
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 12 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:6] + "..." + secret[len(secret)-4:]
}

// IsKeyringAvailable reports whether the system keychain can be used
func IsKeyringAvailable() bool {
	_, err := NewKeyringStore()
	return err == nil
}

// ShowCookieExtractionGuide prints instructions for grabbing the GoPro
// cloud session cookie from a logged-in browser.
func ShowCookieExtractionGuide() {
	fmt.Println("How to get your GoPro cloud session cookie:")
	fmt.Println()
	fmt.Println("1. Log into https://gopro.com/media-library in your browser")
	fmt.Println("2. Open Developer Tools (F12) and go to the Network tab")
	fmt.Println("3. Reload the page and click any request to api.gopro.com")
	fmt.Println("4. Copy the full value of the 'Cookie' request header")
	fmt.Println()
	fmt.Println("The cookie contains a gp_access_token entry that authorizes")
	fmt.Println("API requests. Cookies expire, so you may need to repeat this.")
	fmt.Println()
}
