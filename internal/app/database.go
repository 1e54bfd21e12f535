package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// databaseInfo summarizes the configured database without credentials.
type databaseInfo struct {
	Type        string `json:"type"`
	Host        string `json:"host,omitempty"`
	Port        int    `json:"port,omitempty"`
	Name        string `json:"name,omitempty"`
	Path        string `json:"path,omitempty"`
	PasswordSet bool   `json:"passwordSet"`
}

func describeDatabase(dsn string) (databaseInfo, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return databaseInfo{}, fmt.Errorf("empty dsn")
	}

	if strings.HasPrefix(strings.ToLower(trimmed), "file:") {
		path, _, _ := strings.Cut(trimmed[len("file:"):], "?")
		return databaseInfo{Type: "sqlite", Path: strings.TrimSpace(path)}, nil
	}

	u, errParse := url.Parse(trimmed)
	if errParse != nil {
		return databaseInfo{}, fmt.Errorf("parse dsn: %w", errParse)
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		info := databaseInfo{
			Type: "postgres",
			Host: u.Hostname(),
			Port: 5432,
			Name: strings.TrimPrefix(u.Path, "/"),
		}
		if rawPort := u.Port(); rawPort != "" {
			port, errPort := strconv.Atoi(rawPort)
			if errPort != nil {
				return databaseInfo{}, fmt.Errorf("parse port: %w", errPort)
			}
			info.Port = port
		}
		if u.User != nil {
			_, info.PasswordSet = u.User.Password()
		}
		return info, nil
	default:
		return databaseInfo{}, fmt.Errorf("unsupported dsn scheme %q", u.Scheme)
	}
}
