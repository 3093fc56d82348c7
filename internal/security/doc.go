// Package security derives the read-only posture report exposed by
// authcore.Service.SecurityReport from a validated configuration.
package security
