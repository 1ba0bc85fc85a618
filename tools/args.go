package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/nayeemcharx/discord-mcp-toolkit/chat"
)

// MaxMessageLength is the platform's limit on message content, in characters.
const MaxMessageLength = 2000

// argError is a validation problem reported to the caller verbatim.
type argError string

func (e argError) Error() string {
	return string(e)
}

type arguments struct {
	raw gjson.Result
}

func parseArgs(raw json.RawMessage) arguments {
	return arguments{raw: gjson.ParseBytes(raw)}
}

func (a arguments) has(name string) bool {
	return a.raw.Get(gjson.Escape(name)).Exists()
}

func (a arguments) get(name string) gjson.Result {
	return a.raw.Get(gjson.Escape(name))
}

// require reports the first missing argument in order.
func (a arguments) require(names ...string) error {
	for _, name := range names {
		if !a.has(name) {
			return argError(name + " parameter is required")
		}
	}
	return nil
}

// id parses a decimal snowflake passed as a JSON string.
func (a arguments) id(name string) (chat.Snowflake, error) {
	v := a.get(name)
	if !v.Exists() {
		return 0, argError(name + " parameter is required")
	}
	if v.Type != gjson.String {
		return 0, argError("Invalid " + name + " format")
	}
	id, err := chat.ParseSnowflake(v.Str)
	if err != nil {
		return 0, argError("Invalid " + name + " format")
	}
	return id, nil
}

// intRange returns the integer argument or def when absent. Values outside
// [lo, hi] are rejected with the platform's wording.
func (a arguments) intRange(name string, def, lo, hi int) (int, error) {
	v := a.get(name)
	if !v.Exists() {
		return def, nil
	}
	if v.Type != gjson.Number || v.Num != float64(int64(v.Num)) {
		return 0, argError("Invalid " + name + " format")
	}
	n := int(v.Int())
	if n < lo || n > hi {
		return 0, argError(fmt.Sprintf("%s must be between %d and %d", capitalize(name), lo, hi))
	}
	return n, nil
}

func (a arguments) boolean(name string, def bool) (bool, error) {
	v := a.get(name)
	if !v.Exists() {
		return def, nil
	}
	if v.Type != gjson.True && v.Type != gjson.False {
		return false, argError("Invalid " + name + " format")
	}
	return v.Bool(), nil
}

// message validates outgoing message content.
func (a arguments) message(name string) (string, error) {
	v := a.get(name)
	if !v.Exists() {
		return "", argError(name + " parameter is required")
	}
	if v.Type != gjson.String && v.Type != gjson.Null {
		return "", argError("Invalid " + name + " format")
	}
	content := v.Str
	if strings.TrimSpace(content) == "" {
		return "", argError("Message content cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return "", argError("Message content exceeds Discord's 2000 character limit")
	}
	return content, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// failure converts an error into the tool's failure payload. Validation
// errors keep their text, platform rejections are prefixed.
func failure(err error) chat.Result {
	var argErr argError
	if errors.As(err, &argErr) {
		return chat.Failure(argErr.Error())
	}
	var remote *chat.RemoteError
	if errors.As(err, &remote) {
		return chat.Failuref("Discord API error: %s", remote.Error())
	}
	return chat.Failure(err.Error())
}
