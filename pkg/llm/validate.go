package llm

import "strings"

func validateMessages(messages []Message) error {
	if len(messages) == 0 {
		return invalidRequest("messages must be a non-empty list")
	}
	for i, m := range messages {
		switch m.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return invalidRequest("message %d has invalid role %q", i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return invalidRequest("message %d has empty content", i)
		}
	}
	return nil
}

func validateOptions(opts ChatOptions) error {
	if opts.Temperature != nil && (*opts.Temperature < 0 || *opts.Temperature > 2) {
		return invalidRequest("temperature must be between 0 and 2")
	}
	if opts.MaxTokens != nil && *opts.MaxTokens < 1 {
		return invalidRequest("max_tokens must be a positive integer")
	}
	if opts.ResponseFormat != nil && opts.ResponseFormat.Type != ResponseFormatJSONObject {
		return invalidRequest("response_format type must be %q", ResponseFormatJSONObject)
	}
	return nil
}
