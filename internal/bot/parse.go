package bot

import (
	"fmt"
	"strings"
)

// ParseRegisterArgs reads the sensitive-content flag of /register.
// Format: [nsfw|sfw]
func ParseRegisterArgs(args string) (bool, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return false, nil
	}
	if len(parts) > 1 {
		return false, fmt.Errorf("usage: /register [nsfw|sfw]")
	}
	switch strings.ToLower(parts[0]) {
	case "nsfw", "on", "yes":
		return true, nil
	case "sfw", "off", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid flag %q, use: nsfw, sfw", parts[0])
	}
}

// ParsePostArgs extracts the optional group name of /post.
func ParsePostArgs(args string) (string, error) {
	parts := strings.Fields(args)
	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	default:
		return "", fmt.Errorf("usage: /post [group]")
	}
}

// ParseCallback splits inline button data of the form "<action>:<arg>".
// The argument may be empty.
func ParseCallback(data string) (action, arg string, ok bool) {
	action, arg, ok = strings.Cut(data, ":")
	if !ok || action == "" {
		return "", "", false
	}
	return action, arg, true
}
