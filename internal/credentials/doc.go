// Package credentials resolves the bearer token used against the control plane.
package credentials
