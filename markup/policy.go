package markup

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var localPath = regexp.MustCompile(`^/[A-Za-z0-9/_-]*$`)

// Policy returns the sanitiser for view markup: user-generated content rules
// plus the classes, data attributes and forms the templates use.
func Policy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowDataAttributes()
	p.AllowElements("form", "button", "label", "input")
	p.AllowAttrs("method").Matching(regexp.MustCompile(`^(get|post)$`)).OnElements("form")
	p.AllowAttrs("action").Matching(localPath).OnElements("form")
	p.AllowAttrs("type", "name", "value", "placeholder", "required").OnElements("input")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	return p
}
