package reddit

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/riskfeed/internal/model"
)

// EnrichHTMLTitle fetches the post's permalink page and records its <title>.
// Failures leave the post unchanged.
func (c *Client) EnrichHTMLTitle(ctx context.Context, post model.Post) model.Post {
	if post.Permalink == "" {
		return post
	}

	body, err := c.get(ctx, post.Permalink, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		c.logger.WithError(err).WithField("post_id", post.ID).Debug("html enrichment failed")
		return post
	}

	title, err := extractTitle(body)
	if err != nil {
		c.logger.WithError(err).WithField("post_id", post.ID).Warn("html parse failed")
		return post
	}

	post.HTMLTitle = title
	return post
}

// extractTitle returns the text of the first <title> element
func extractTitle(body []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var find func(*html.Node) string
	find = func(n *html.Node) string {
		if n.Type == html.ElementNode && n.Data == "title" {
			var sb strings.Builder
			for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
				if ch.Type == html.TextNode {
					sb.WriteString(ch.Data)
				}
			}
			return strings.TrimSpace(sb.String())
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			if t := find(ch); t != "" {
				return t
			}
		}
		return ""
	}

	return find(doc), nil
}
