package agent

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Sentinel is the canonical value for a field the extraction could not
// resolve.
const Sentinel = "Not Found"

// PlaceholderID marks salvage records created for bare URLs that were
// found by search but never extracted.
const PlaceholderID = "extraction-failed"

// Record is one collected blog entry. URL is always populated; every other
// data field is either a real value or the sentinel.
type Record struct {
	ID              string
	Name            string
	URL             string
	RecentPostDate  string
	FirstPostDate   string
	TotalPosts      string
	CreationDate    string
	AverageVisitors string
	Summary         string
	SourceKeyword   string
}

// FieldColumns is the canonical writer column order, after the source
// keyword column.
var FieldColumns = []string{
	"blog_id",
	"blog_name",
	"blog_url",
	"recent_post_date",
	"first_post_date",
	"total_posts",
	"blog_creation_date",
	"average_visitors",
	"llm_summary",
}

// ColumnValues returns the record's values in FieldColumns order.
func (r Record) ColumnValues() []string {
	return []string{
		r.ID,
		r.Name,
		r.URL,
		r.RecentPostDate,
		r.FirstPostDate,
		r.TotalPosts,
		r.CreationDate,
		r.AverageVisitors,
		r.Summary,
	}
}

// fieldAliases maps each canonical field to the source keys the reasoning
// service has been observed to use, in priority order. First present
// non-empty value wins.
var fieldAliases = map[string][]string{
	"blog_name":          {"blog_name", "title", "site_title", "website_name", "name", "blog_title"},
	"blog_url":           {"blog_url", "url", "website_url", "site_url", "link"},
	"recent_post_date":   {"recent_post_date", "latest_post_date", "last_post_date", "newest_post_date", "latest_post"},
	"first_post_date":    {"first_post_date", "first_post_date_info", "earliest_post_date", "start_date", "first_post"},
	"total_posts":        {"total_posts", "total_posts_info", "post_count", "article_count", "number_of_posts", "posts_count"},
	"blog_creation_date": {"blog_creation_date", "blog_creation_date_info", "created_date", "founding_date", "launch_date"},
	"average_visitors":   {"average_visitors", "average_visitors_hint", "monthly_visitors", "visitor_count", "traffic", "page_views"},
	"llm_summary":        {"llm_summary", "main_content_summary", "summary", "description", "about", "content_summary"},
}

// NewRecordFromFields builds a record from a decoded extraction object.
// Unmapped fields get the sentinel; the URL argument wins over any URL the
// extraction output claims.
func NewRecordFromFields(fields map[string]any, sourceURL, sourceKeyword string) Record {
	resolve := func(canonical string) string {
		for _, key := range fieldAliases[canonical] {
			if v, ok := fields[key]; ok {
				if s := coerceString(v); s != "" {
					return s
				}
			}
		}
		return Sentinel
	}

	url := sourceURL
	if url == "" {
		if mapped := resolve("blog_url"); mapped != Sentinel {
			url = mapped
		}
	}

	name := resolve("blog_name")
	rec := Record{
		ID:              DeriveIdentifier(url, name),
		Name:            name,
		URL:             url,
		RecentPostDate:  resolve("recent_post_date"),
		FirstPostDate:   resolve("first_post_date"),
		TotalPosts:      resolve("total_posts"),
		CreationDate:    resolve("blog_creation_date"),
		AverageVisitors: resolve("average_visitors"),
		Summary:         resolve("llm_summary"),
		SourceKeyword:   sourceKeyword,
	}
	return rec
}

// PlaceholderRecord builds a salvage record for a URL that was found but
// never extracted.
func PlaceholderRecord(url, sourceKeyword string) Record {
	return Record{
		ID:              PlaceholderID,
		Name:            "extraction failed, URL only",
		URL:             url,
		RecentPostDate:  Sentinel,
		FirstPostDate:   Sentinel,
		TotalPosts:      Sentinel,
		CreationDate:    Sentinel,
		AverageVisitors: Sentinel,
		Summary:         Sentinel,
		SourceKeyword:   sourceKeyword,
	}
}

// coerceString renders a decoded JSON value as a string for writer
// uniformity. Whole numbers drop their decimal point.
func coerceString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", x))
	}
}

// DeriveIdentifier computes the stable record identifier from the canonical
// URL and name. Pure and deterministic: the same inputs always yield the
// same identifier.
func DeriveIdentifier(rawURL, name string) string {
	host := rawURL
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	if idx := strings.IndexByte(host, '/'); idx >= 0 {
		host = host[:idx]
	}
	host = strings.TrimPrefix(host, "www.")

	var base strings.Builder
	for _, r := range host {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			base.WriteRune(unicode.ToLower(r))
		} else {
			base.WriteByte('_')
		}
	}

	var slug strings.Builder
	slugRunes := 0
	for _, r := range name {
		if slugRunes >= 20 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			slug.WriteRune(unicode.ToLower(r))
			slugRunes++
		}
	}

	switch {
	case base.Len() == 0 && slug.Len() == 0:
		return "unknown_blog_id"
	case slug.Len() == 0:
		return base.String()
	case base.Len() == 0:
		return slug.String()
	default:
		return base.String() + "_" + slug.String()
	}
}

// Store is the in-memory ordered record collection for one session. Access
// is single-threaded by the loop's design; no lock is needed.
type Store struct {
	records []Record
	seen    map[string]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{seen: map[string]int{}}
}

// Add appends rec unless a record with the same identifier already exists.
// Duplicates are reported, not merged; the existing record only gets its
// source keyword backfilled when it lacks one.
func (s *Store) Add(rec Record) (added bool) {
	if idx, ok := s.seen[rec.ID]; ok {
		if s.records[idx].SourceKeyword == "" && rec.SourceKeyword != "" {
			s.records[idx].SourceKeyword = rec.SourceKeyword
		}
		return false
	}
	s.seen[rec.ID] = len(s.records)
	s.records = append(s.records, rec)
	return true
}

// Len reports the number of collected records.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns a copy of the collected records in insertion order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// HasURL reports whether any collected record covers url.
func (s *Store) HasURL(url string) bool {
	for _, rec := range s.records {
		if rec.URL == url {
			return true
		}
	}
	return false
}
