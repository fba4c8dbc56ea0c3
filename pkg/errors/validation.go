package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a dependency name before it is joined into a
// node_modules path. It rejects names that could be used for path traversal.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 214 characters (npm's limit)
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 214 {
		return New(ErrCodeInvalidPackage, "package name too long (max 214 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, ".") {
		return New(ErrCodeInvalidPackage, "package name cannot start with %q", name[:1])
	}

	return nil
}

// npmPackageNameRegex matches valid npm package names, including legacy
// mixed-case names that still exist on the registry.
var npmPackageNameRegex = regexp.MustCompile(`^(@[A-Za-z0-9~-][A-Za-z0-9._~-]*/)?[A-Za-z0-9~-][A-Za-z0-9._~-]*$`)

// ValidateNpmPackageName validates an npm package name, scoped or not.
func ValidateNpmPackageName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}

	if !npmPackageNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid npm package name: %q", name)
	}

	return nil
}

// ValidateLocation validates a lockfile install location such as
// "node_modules/@babel/core/node_modules/semver". Locations become scratch
// directory paths, so they must be relative and free of traversal.
//
// Validation rules:
//   - Maximum length of 1024 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No ".." path segments
//   - No backslashes (Windows-style paths)
func ValidateLocation(loc string) error {
	if loc == "" {
		return New(ErrCodeInvalidPath, "location cannot be empty")
	}

	const maxLocationLength = 1024
	if len(loc) > maxLocationLength {
		return New(ErrCodeInvalidPath, "location too long (max %d characters)", maxLocationLength)
	}

	for _, r := range loc {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "location contains invalid characters")
		}
	}

	if strings.HasPrefix(loc, "/") {
		return New(ErrCodeInvalidPath, "location must be relative (cannot start with /)")
	}

	if strings.Contains(loc, "\\") {
		return New(ErrCodeInvalidPath, "location cannot contain backslashes")
	}

	for _, seg := range strings.Split(loc, "/") {
		if seg == ".." {
			return New(ErrCodeInvalidPath, "location cannot contain path traversal sequences (..)")
		}
	}

	return nil
}

// ValidateURL validates a tarball URL string for safety.
// It ensures the URL has a fetchable scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeUnsupportedSource, "URL must use http or https scheme: %s", rawURL)
	}

	return nil
}
