// Package common holds helpers shared by hexpack services.
//
// FindProcesses lists running processes by executable name, which the
// packager uses to warn when the binary being packaged is still running.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
