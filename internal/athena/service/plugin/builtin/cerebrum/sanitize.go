package cerebrum

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiosk404/athena/pkg/logger"
	"github.com/kiosk404/athena/pkg/utils/json"
)

// spiller replaces oversized strings with a pointer to a file holding them.
type spiller struct {
	maxLen int
	dir    string
}

// normalize turns arbitrary tool output into plain JSON values so it can be
// walked, rendered and persisted alike.
func normalize(v interface{}) interface{} {
	switch v.(type) {
	case nil, string, bool, float64, map[string]interface{}, []interface{}:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return string(data)
	}
	return out
}

// sanitize walks v and spills every string longer than maxLen.
func (s *spiller) sanitize(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		if s.maxLen <= 0 || len(val) <= s.maxLen {
			return val
		}
		return s.spill(val)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = s.sanitize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = s.sanitize(item)
		}
		return out
	}
	return v
}

func (s *spiller) spill(content string) string {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		logger.ErrorX(PluginName, "[Cerebrum] create spill dir %q: %v", s.dir, err)
		return cut(content, s.maxLen)
	}
	path := filepath.Join(s.dir, "event-"+uuid.NewString()+".txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		logger.ErrorX(PluginName, "[Cerebrum] spill to %q: %v", path, err)
		return cut(content, s.maxLen)
	}
	logger.InfoX(PluginName, "[Cerebrum] spilled %d bytes to %s", len(content), path)
	return fmt.Sprintf("The result is too long (%d bytes) and cannot be shown directly. "+
		"It has been written to %q. You can use other tools to read the file and reveal part of the content.",
		len(content), path)
}

// cut shortens s to at most n bytes without splitting a rune.
func cut(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
