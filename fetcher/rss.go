package fetcher

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/sat8bit/roundtable/topic"
)

// RSSFetcher は topic.Fetcher インターフェースのRSS実装です。
// ビジネス系ニュースフィードから討論の話題候補を取得します。
type RSSFetcher struct {
	url      string
	limit    int
	keywords []string
}

// NewRSSFetcher は新しい RSSFetcher を生成します。
// limit は取得する記事の上限数を指定します。0以下の場合は無制限。
// keywords を指定すると、タイトルか要約にいずれかのキーワードを含む
// 記事だけを話題候補にします。
func NewRSSFetcher(url string, limit int, keywords ...string) topic.Fetcher {
	return &RSSFetcher{
		url:      url,
		limit:    limit,
		keywords: keywords,
	}
}

// Fetch は指定されたURLからRSSフィードを取得し、新しい順に並べた
// *topic.Topic のスライスに変換します。
func (f *RSSFetcher) Fetch(ctx context.Context) ([]*topic.Topic, error) {
	fp := gofeed.NewParser()
	feed, err := fp.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed from %s: %w", f.url, err)
	}

	sort.Slice(feed.Items, func(i, j int) bool {
		iTime := feed.Items[i].PublishedParsed
		jTime := feed.Items[j].PublishedParsed
		if iTime == nil || jTime == nil {
			return i < j
		}
		return iTime.After(*jTime)
	})

	var topics []*topic.Topic
	for _, item := range feed.Items {
		if f.limit > 0 && len(topics) >= f.limit {
			break
		}

		summary := truncateString(stripHTML(item.Description), 200)
		if !f.matches(item.Title, summary) {
			continue
		}

		topics = append(topics, &topic.Topic{
			Title:     item.Title,
			Summary:   summary,
			SourceURL: item.Link,
		})
	}

	return topics, nil
}

// matches は、キーワードフィルタを適用します。キーワード未指定なら常に true。
func (f *RSSFetcher) matches(title, summary string) bool {
	if len(f.keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(title + " " + summary)
	for _, kw := range f.keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// stripHTML は文字列からHTMLタグを削除します。
var htmlRegex = regexp.MustCompile("<[^>]*>")

func stripHTML(s string) string {
	return htmlRegex.ReplaceAllString(s, "")
}

// truncateString は文字列をrune単位で指定された長さに切り詰めます。
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return s
}

var _ topic.Fetcher = (*RSSFetcher)(nil)
