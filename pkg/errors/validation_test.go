package errors

import (
	"strings"
	"testing"
)

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "lodash", false},
		{"valid with dash", "my-package", false},
		{"valid with underscore", "my_package", false},
		{"valid with dot", "my.package", false},
		{"valid scoped npm", "@scope/package", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"path traversal ..", "foo/../bar", true},
		{"path traversal //", "foo//bar", true},
		{"leading slash", "/etc", true},
		{"leading dot", ".bin", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNpmPackageName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain", "express", false},
		{"scoped", "@babel/core", false},
		{"legacy uppercase", "JSONStream", false},
		{"tilde", "~foo", false},

		{"space", "my package", true},
		{"scope without name", "@babel/", true},
		{"traversal", "../evil", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNpmPackageName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNpmPackageName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateLocation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"top level", "node_modules/lodash", false},
		{"scoped", "node_modules/@babel/core", false},
		{"nested", "node_modules/a/node_modules/b", false},
		{"workspace member", "packages/app", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "node_modules/../../etc", true},
		{"bare parent", "..", true},
		{"backslash", "node_modules\\a", true},
		{"control char", "node_modules/a\x01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLocation(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLocation(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode Code
	}{
		{"https", "https://registry.npmjs.org/a/-/a-1.0.0.tgz", ""},
		{"http", "http://localhost:4873/a/-/a-1.0.0.tgz", ""},
		{"empty", "", ErrCodeInvalidInput},
		{"git", "git+ssh://git@github.com/a/b.git#abc", ErrCodeUnsupportedSource},
		{"file", "file:../local.tgz", ErrCodeUnsupportedSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("ValidateURL(%q) unexpected error: %v", tt.input, err)
				}
				return
			}
			if !Is(err, tt.wantCode) {
				t.Errorf("ValidateURL(%q) error = %v, want code %s", tt.input, err, tt.wantCode)
			}
		})
	}
}
