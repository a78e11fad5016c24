// Package session keeps one response ledger per client session.
//
// A session is named by the client's X-Session-ID. Its ledger is created on
// first use and bound to whichever user the request authenticates as. A
// periodic janitor drops ledgers that have been idle for too long and purges
// local copies nobody has written to within the retention window.
package session
