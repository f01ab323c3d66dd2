// Package google provides OAuth2 authentication and token management for the
// single Google identity that owns the meeting calendar.
//
// A CredentialStore holds the current token pair, refreshes it on demand and
// writes refreshed tokens back to a TokenStore. It implements
// oauth2.TokenSource and is shared by every Google API client in the process.
package google
