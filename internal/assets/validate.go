package assets

import (
	"fmt"
	"path/filepath"
	"strings"
)

// scriptTokens are syntax fragments at least one of which any real portal
// script contains. Keeps an HTML error page served with a 200 from slipping
// through as portal.js.
var scriptTokens = []string{"function", "var ", "let ", "const ", "=>", "document."}

// Validate checks downloaded bytes against the structural expectations for
// the file's extension. Markup needs a root tag, scripts need script syntax,
// stylesheets need declaration blocks. Everything must be non-empty.
func Validate(name string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%s: empty file", name)
	}

	content := strings.ToLower(string(data))
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		if !strings.Contains(content, "<html") {
			return fmt.Errorf("%s: no root markup tag", name)
		}
	case ".js":
		for _, token := range scriptTokens {
			if strings.Contains(content, token) {
				return nil
			}
		}
		return fmt.Errorf("%s: no recognizable script syntax", name)
	case ".css":
		if !strings.Contains(content, "{") || !strings.Contains(content, "}") {
			return fmt.Errorf("%s: no declaration blocks", name)
		}
	}
	return nil
}
