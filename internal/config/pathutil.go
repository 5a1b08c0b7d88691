package config

import "signalpilot/pkg/confkit"

// Thin aliases over confkit path resolution so callers inside internal/ do
// not need a second import just to locate files under the repository root.

// ProjectRoot reports the repository root directory.
func ProjectRoot() (string, error) { return confkit.ProjectRoot() }

// MustProjectRoot is like ProjectRoot but panics on failure.
func MustProjectRoot() string { return confkit.MustProjectRoot() }

// ProjectPath joins the repository root with the provided relative path.
func ProjectPath(rel string) (string, error) { return confkit.ProjectPath(rel) }

// MustProjectPath is like ProjectPath but panics on failure.
func MustProjectPath(rel string) string { return confkit.MustProjectPath(rel) }
