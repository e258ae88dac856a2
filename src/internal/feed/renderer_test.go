// FILE: src/internal/feed/renderer_test.go
package feed

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"rsslogfeed/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLink = "http://homeassistant.local:8123"

func newTestRenderer() *Renderer {
	return NewRenderer(testLink)
}

type rssDoc struct {
	Channel struct {
		Title       string    `xml:"title"`
		Description string    `xml:"description"`
		Link        string    `xml:"link"`
		Items       []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Category    string `xml:"category"`
	PubDate     string `xml:"pubDate"`
}

func parseDoc(t *testing.T, doc []byte) rssDoc {
	t.Helper()
	var parsed rssDoc
	require.NoError(t, xml.Unmarshal(doc, &parsed))
	return parsed
}

func TestRenderer_Render(t *testing.T) {
	testTime := time.Date(2023, 10, 27, 10, 30, 0, 0, time.Local)

	t.Run("SingleRecord", func(t *testing.T) {
		doc, err := newTestRenderer().Render([]core.LogRecord{{
			Time:    testTime,
			Level:   core.Info,
			Client:  "sensor1",
			Message: "disk low",
			Extra:   map[string]any{"free_pct": int64(5)},
		}})
		require.NoError(t, err)

		parsed := parseDoc(t, doc)
		assert.Equal(t, "Home Assistant Remote Log Feed", parsed.Channel.Title)
		assert.Equal(t, "Externally-writeable log feed", parsed.Channel.Description)
		assert.Equal(t, testLink, parsed.Channel.Link)

		require.Len(t, parsed.Channel.Items, 1)
		item := parsed.Channel.Items[0]
		assert.Equal(t, "sensor1", item.Title)
		assert.Equal(t, testLink, item.Link)
		assert.Equal(t, "INFO", item.Category)
		assert.Equal(t, `disk low. Extra data: {"free_pct": 5}`, item.Description)
		assert.Equal(t, testTime.Format(time.RFC1123Z), item.PubDate)
	})

	t.Run("LinkFromExtra", func(t *testing.T) {
		doc, err := newTestRenderer().Render([]core.LogRecord{{
			Time:   testTime,
			Level:  core.Error,
			Client: "gateway",
			Extra:  map[string]any{"link": "http://example.com/alert"},
		}})
		require.NoError(t, err)

		parsed := parseDoc(t, doc)
		require.Len(t, parsed.Channel.Items, 1)
		assert.Equal(t, "http://example.com/alert", parsed.Channel.Items[0].Link)
	})

	t.Run("OrderPreserved", func(t *testing.T) {
		doc, err := newTestRenderer().Render([]core.LogRecord{
			{Time: testTime, Level: core.Info, Client: "older"},
			{Time: testTime.Add(time.Minute), Level: core.Info, Client: "newer"},
		})
		require.NoError(t, err)

		parsed := parseDoc(t, doc)
		require.Len(t, parsed.Channel.Items, 2)
		assert.Equal(t, "older", parsed.Channel.Items[0].Title)
		assert.Equal(t, "newer", parsed.Channel.Items[1].Title)
	})

	t.Run("EmptyFeedIsWellFormed", func(t *testing.T) {
		doc, err := newTestRenderer().Render(nil)
		require.NoError(t, err)

		parsed := parseDoc(t, doc)
		assert.Equal(t, "Home Assistant Remote Log Feed", parsed.Channel.Title)
		assert.Empty(t, parsed.Channel.Items)
		assert.True(t, strings.Contains(string(doc), "<rss"))
	})
}
