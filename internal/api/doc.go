// Package api exposes the response ledger and review scheduler over HTTP.
// Every /api request carries a session header; the bearer token is optional
// and decides whether the session ledger syncs with the remote store.
package api
