package lang

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Detector wraps trigram-based language detection. Short queries are
// often ambiguous; callers must treat ok=false as "assume the corpus
// language", never as an error.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

func (d *Detector) Detect(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" || !info.IsReliable() {
		return code, false
	}
	return code, true
}
