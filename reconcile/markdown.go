package reconcile

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// Markdown converts the children of n to Markdown, for terminal output.
func Markdown(n *html.Node) (string, error) {
	inner, err := InnerHTML(n)
	if err != nil {
		return "", err
	}
	md, err := mdConverter.ConvertString(inner)
	if err != nil {
		return "", fmt.Errorf("reconcile: markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
