// Package branches deletes control plane database branches for neonbranch.
//
// It offers CommandBuilder for the branch-delete Cobra command and Deleter,
// which repeats deletion requests at a fixed interval until the control plane
// confirms the deleted branch identifier or the attempt budget is spent.
package branches
