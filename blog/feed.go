package blog

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	feedCacheKey    = "feed:latest"
	feedCacheTTL    = time.Hour
	feedItemCount   = 5
	feedExcerptSize = 30
)

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	GUID        rssGUID  `xml:"guid"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Feed renders the RSS feed of the latest published posts.
type Feed struct {
	store       PostReader
	cache       Cache
	logger      *slog.Logger
	Title       string
	Description string
	now         func() time.Time
}

func NewFeed(store PostReader, cache Cache, logger *slog.Logger, title, description string) *Feed {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		store:       store,
		cache:       cache,
		logger:      logger,
		Title:       title,
		Description: description,
		now:         time.Now,
	}
}

// XML returns the feed document, from cache when possible. baseURL is the
// scheme and host links are made absolute with.
func (f *Feed) XML(ctx context.Context, baseURL string) ([]byte, error) {
	if cached, err := f.cache.Get(ctx, feedCacheKey); err != nil {
		f.logger.WarnContext(ctx, "feed cache read failed", slog.Any("error", err))
	} else if cached != "" {
		return []byte(cached), nil
	}

	posts, err := f.store.ListPosts(ctx, PostFilter{Status: StatusPublished}, feedItemCount, 0)
	if err != nil {
		return nil, fmt.Errorf("latest posts: %w", err)
	}

	baseURL = strings.TrimRight(baseURL, "/")
	doc := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:         f.Title,
			Link:          baseURL + BasePath + "/",
			Description:   f.Description,
			LastBuildDate: f.now().Format(time.RFC1123Z),
		},
	}
	for i := range posts {
		p := &posts[i]
		link := baseURL + p.AbsoluteURL()
		item := rssItem{
			Title:       p.Title,
			Link:        link,
			Description: Excerpt(p.Body, feedExcerptSize),
			PubDate:     p.Publish.Format(time.RFC1123Z),
			GUID:        rssGUID{IsPermaLink: true, Value: link},
			Author:      p.Author,
		}
		for _, t := range p.Tags {
			item.Categories = append(item.Categories, t.Name)
		}
		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	out = append([]byte(xml.Header), out...)

	if err := f.cache.Set(ctx, feedCacheKey, string(out), feedCacheTTL); err != nil {
		f.logger.WarnContext(ctx, "feed cache write failed", slog.Any("error", err))
	}
	return out, nil
}

// Invalidate drops the cached feed after content changes.
func (f *Feed) Invalidate(ctx context.Context) error {
	return f.cache.Delete(ctx, feedCacheKey)
}
