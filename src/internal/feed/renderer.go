// FILE: src/internal/feed/renderer.go
package feed

import (
	"fmt"
	"time"

	"rsslogfeed/src/internal/core"
	"rsslogfeed/src/internal/format"

	"github.com/gorilla/feeds"
)

// ContentType is the media type of rendered feed documents
const ContentType = "application/rss+xml"

const (
	feedTitle       = "Home Assistant Remote Log Feed"
	feedDescription = "Externally-writeable log feed"
)

// Renderer builds an RSS document from a queried record sequence
type Renderer struct {
	link string
}

// NewRenderer creates a renderer. The link is used as the channel's self
// link and as the default item link when a record supplies none.
func NewRenderer(link string) *Renderer {
	return &Renderer{link: link}
}

// Render produces a complete RSS 2.0 document with one item per record,
// in the order the records are given. An empty input renders a valid
// empty feed.
func (r *Renderer) Render(records []core.LogRecord) ([]byte, error) {
	rss := &feeds.RssFeed{
		Title:       feedTitle,
		Description: feedDescription,
		Link:        r.link,
	}

	for _, rec := range records {
		rss.Items = append(rss.Items, &feeds.RssItem{
			// Title carries the client identity
			Title:       rec.Client,
			Link:        r.itemLink(rec),
			PubDate:     rec.Time.Local().Format(time.RFC1123Z),
			Category:    rec.Level.String(),
			Description: format.MessageOnly(rec),
		})
	}

	doc, err := feeds.ToXML(rss)
	if err != nil {
		return nil, fmt.Errorf("failed to render feed: %w", err)
	}

	return []byte(doc), nil
}

func (r *Renderer) itemLink(rec core.LogRecord) string {
	if link, ok := rec.Extra["link"].(string); ok && link != "" {
		return link
	}
	return r.link
}
