package platform

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var usernamePattern = regexp.MustCompile(`^[\w.]+$`)

// ValidateUsername checks a platform username before any network call
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return &InvalidIdentifierError{Message: "invalid username: cannot be blank"}
	}
	if !usernamePattern.MatchString(username) {
		return &InvalidIdentifierError{Message: fmt.Sprintf("invalid username format: %s", username)}
	}
	if len(username) > 30 {
		return &InvalidIdentifierError{Message: fmt.Sprintf("invalid username: too long: %s", username)}
	}
	return nil
}

// Decode parses raw bytes as a structured JSON document
func Decode(raw []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid JSON response: %v", err)}
	}
	return doc, nil
}

// ValidateInstagramProfileShape asserts the minimal path an Instagram profile
// response must have. A payload that otherwise signals "user not found"
// yields an InvalidIdentifierError; a payload missing the container without
// such a signal yields a structural ParseError.
func ValidateInstagramProfileShape(doc map[string]interface{}) error {
	if userContainer(doc) != nil {
		return nil
	}
	if message, ok := doc["message"].(string); ok &&
		strings.Contains(strings.ToLower(message), "user not found") {
		return &InvalidIdentifierError{Message: "user not found on the platform (deleted or doesn't exist)"}
	}
	return &ParseError{Message: "invalid response structure: missing user data"}
}

// InstagramPostItems extracts the raw post items from an Instagram response:
// regular timeline posts and the video/reel timeline, concatenated. A
// non-array container is tolerated as empty.
func InstagramPostItems(doc map[string]interface{}) []map[string]interface{} {
	user := userContainer(doc)
	if user == nil {
		return nil
	}

	items := make([]map[string]interface{}, 0)
	for _, container := range []string{"edge_owner_to_timeline_media", "edge_felix_video_timeline"} {
		media, _ := user[container].(map[string]interface{})
		if media == nil {
			continue
		}
		edges, _ := media["edges"].([]interface{})
		for _, edge := range edges {
			if item, ok := edge.(map[string]interface{}); ok {
				items = append(items, item)
			}
		}
	}
	return items
}

func userContainer(doc map[string]interface{}) map[string]interface{} {
	data, _ := doc["data"].(map[string]interface{})
	if data == nil {
		return nil
	}
	user, _ := data["user"].(map[string]interface{})
	return user
}

// ValidateTikTokEnvelope checks the status field TikTok wraps every payload
// in; an in-body failure is surfaced as an API error carrying the upstream
// message.
func ValidateTikTokEnvelope(doc map[string]interface{}) error {
	status, _ := doc["status"].(string)
	statusCode, hasCode := doc["statusCode"].(float64)
	if status == "success" || (hasCode && statusCode == 0) {
		return nil
	}
	message, _ := doc["message"].(string)
	if message == "" {
		message = "unknown error"
	}
	return &APIError{Message: fmt.Sprintf("tiktok api error: %s", message)}
}

// ValidateTikTokProfileShape asserts that the profile payload carries the
// userInfo.user container
func ValidateTikTokProfileShape(doc map[string]interface{}) error {
	userInfo, _ := doc["userInfo"].(map[string]interface{})
	if userInfo == nil {
		message, _ := doc["message"].(string)
		if strings.Contains(strings.ToLower(message), "not found") {
			return &InvalidIdentifierError{Message: "user not found on the platform (deleted or doesn't exist)"}
		}
		return &ParseError{Message: "invalid response structure: missing user data"}
	}
	if _, ok := userInfo["user"].(map[string]interface{}); !ok {
		return &ParseError{Message: "invalid response structure: missing user data"}
	}
	return nil
}

// TikTokPostItems extracts the raw post items from a TikTok posts response.
// Returns an error when the itemList container is absent.
func TikTokPostItems(doc map[string]interface{}) ([]map[string]interface{}, error) {
	rawList, ok := doc["itemList"]
	if !ok {
		message, _ := doc["message"].(string)
		if message == "" {
			message = "item list not found"
		}
		return nil, &ParseError{Message: fmt.Sprintf("invalid response structure: %s", message)}
	}

	list, _ := rawList.([]interface{})
	items := make([]map[string]interface{}, 0, len(list))
	for _, raw := range list {
		if item, ok := raw.(map[string]interface{}); ok {
			items = append(items, item)
		}
	}
	return items, nil
}
