// Package auth validates and issues the bearer tokens that identify a user.
//
// Login, passwords and refresh flows live outside this service. An upstream
// identity provider signs HS256 tokens with a shared secret; this package
// only turns such a token into a user ID, and can mint tokens for local
// development and tests.
package auth
