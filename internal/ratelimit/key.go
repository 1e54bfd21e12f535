package ratelimit

import (
	"fmt"
	"strings"
)

// SubmissionKey scopes flag submission throttling to a user.
func SubmissionKey(userID uint64) string {
	if userID == 0 {
		return ""
	}
	return fmt.Sprintf("submit:u:%d", userID)
}

// LoginKey scopes login throttling to a client address.
func LoginKey(clientIP string) string {
	clientIP = strings.TrimSpace(clientIP)
	if clientIP == "" {
		return ""
	}
	return "login:ip:" + clientIP
}
