// SPDX-License-Identifier: MPL-2.0

// Package sshview serves read-only views of a module graph over SSH.
//
// Clients authenticate with the server token as password and pass the
// view as the SSH command:
//
//	ssh -p 2222 viewer@localhost reverse Core
package sshview
