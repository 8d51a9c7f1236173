package userconfig

import (
	"regexp"
	"strings"
)

const (
	// DefaultSection holds options of a Flat defaults table and the
	// version tag.
	DefaultSection = "main"
	// VersionOption is the reserved option carrying the configuration
	// version inside the default section.
	VersionOption = "version"
	// baseVersion stands in for a missing version tag.
	baseVersion = "0.0.0"
)

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// ValidVersion reports whether v is in strict MAJOR.MINOR.PATCH form.
func ValidVersion(v string) bool {
	return versionPattern.MatchString(v)
}

func checkVersion(v string) error {
	if v == "" || ValidVersion(v) {
		return nil
	}
	return &InvalidVersionError{Version: v}
}

func effectiveVersion(v string) string {
	if v == "" {
		return baseVersion
	}
	return v
}

func checkStoreName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return ErrInvalidName
	case strings.ContainsAny(name, "/\\\x00"), name == ".", name == "..":
		return ErrInvalidName
	}
	return nil
}

func checkSection(section string) error {
	switch {
	case strings.TrimSpace(section) == "":
		return &InvalidArgumentError{Argument: "section", Value: section, Reason: "must not be empty"}
	case strings.TrimSpace(section) != section:
		return &InvalidArgumentError{Argument: "section", Value: section, Reason: "must not have surrounding whitespace"}
	case strings.ContainsAny(section, "[]\r\n"):
		return &InvalidArgumentError{Argument: "section", Value: section, Reason: "must not contain brackets or line breaks"}
	case section == "DEFAULT":
		return &InvalidArgumentError{Argument: "section", Value: section, Reason: "is reserved"}
	}
	return nil
}

func checkOption(option string) error {
	switch {
	case strings.TrimSpace(option) == "":
		return &InvalidArgumentError{Argument: "option", Value: option, Reason: "must not be empty"}
	case strings.TrimSpace(option) != option:
		return &InvalidArgumentError{Argument: "option", Value: option, Reason: "must not have surrounding whitespace"}
	case strings.ContainsAny(option, "=:\r\n"):
		return &InvalidArgumentError{Argument: "option", Value: option, Reason: "must not contain '=', ':' or line breaks"}
	case strings.ContainsAny(option[:1], "[#;"):
		return &InvalidArgumentError{Argument: "option", Value: option, Reason: "must not start with '[', '#' or ';'"}
	}
	return nil
}
