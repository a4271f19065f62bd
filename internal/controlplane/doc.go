// Package controlplane talks to the Neon console API for neonbranch.
//
// Client issues single branch deletion round trips over an oauth2 bearer
// transport and classifies each response as confirmed, empty, or unconfirmed
// so callers can decide whether another attempt is warranted.
package controlplane
