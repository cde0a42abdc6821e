package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stellarlinkco/luma/internal/memory"
)

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:I'm|I am|[Mm]y name is|[Cc]all me) ([A-Z][a-z]+)`),
	regexp.MustCompile(`[Tt]his is ([A-Z][a-z]+)`),
}

var interestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:love|like|enjoy|into|fan of) ([\w ]+)`),
	regexp.MustCompile(`interested in ([\w ]+)`),
	regexp.MustCompile(`hobby is ([\w ]+)`),
}

const maxExtractedLen = 50

// ExtractUserInfo pulls profile-worthy facts out of one message with lexical
// heuristics: a stated name and declared interests. It is deliberately
// shallow; anything ambiguous is left alone.
func ExtractUserInfo(message string) memory.ExtractedInfo {
	var info memory.ExtractedInfo

	for _, re := range namePatterns {
		if m := re.FindStringSubmatch(message); m != nil {
			info.Name = m[1]
			break
		}
	}

	lower := strings.ToLower(message)
	for _, re := range interestPatterns {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			interest := strings.TrimSpace(m[1])
			if interest != "" && len(interest) < maxExtractedLen {
				info.Interests = append(info.Interests, interest)
			}
		}
	}

	return info
}

// ValidateMessage gates raw user input before the pipeline runs.
func ValidateMessage(message string, maxLen int) (bool, string) {
	if strings.TrimSpace(message) == "" {
		return false, "message cannot be empty"
	}
	if len(message) > maxLen {
		return false, fmt.Sprintf("message too long (max %d characters)", maxLen)
	}
	return true, ""
}

var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateUserID enforces the identifier shape accepted by storage keys.
func ValidateUserID(userID string) (bool, string) {
	if strings.TrimSpace(userID) == "" {
		return false, "user id cannot be empty"
	}
	if len(userID) > 100 {
		return false, "user id too long"
	}
	if !userIDPattern.MatchString(userID) {
		return false, "user id contains invalid characters"
	}
	return true, ""
}

// ValidateSessionID only bounds length; session ids are opaque.
func ValidateSessionID(sessionID string) (bool, string) {
	if strings.TrimSpace(sessionID) == "" {
		return false, "session id cannot be empty"
	}
	if len(sessionID) > 100 {
		return false, "session id too long"
	}
	return true, ""
}
