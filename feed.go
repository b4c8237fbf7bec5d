package studyblog

import (
	"fmt"
	"strings"
	"time"
)

// wordsPerMinute is the reading speed used for the estimated reading time.
const wordsPerMinute = 200

// ReadingTime estimates reading minutes for content: word count divided by
// 200 words per minute, rounded up, never less than one minute.
func ReadingTime(content string) int {
	words := len(strings.Fields(content))
	if words == 0 {
		return 1
	}
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

func formatReadTime(content string) string {
	return fmt.Sprintf("%d min read", ReadingTime(content))
}

func formatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// filterBySearch narrows posts to those whose title or content contains the
// needle, case-insensitively. An empty needle matches everything. The filter
// runs over an already-fetched set; it never touches the store.
func filterBySearch(posts []Post, needle string) []Post {
	if needle == "" {
		return posts
	}
	needle = strings.ToLower(needle)
	var out []Post
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Content), needle) {
			out = append(out, p)
		}
	}
	return out
}

// annotatePosts derives the display metadata for each post: subject name,
// reading time, formatted creation date, and owner attribution. A post is
// attributed to the viewer's email only when the viewer owns it and the site
// settings allow showing owner emails; every other post reads "Anonymous".
func annotatePosts(posts []Post, viewer *User, settings SiteSettings) []PostView {
	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, annotatePost(p, viewer, settings))
	}
	return views
}

func annotatePost(p Post, viewer *User, settings SiteSettings) PostView {
	v := PostView{
		Post:     p,
		Author:   "Anonymous",
		ReadTime: formatReadTime(p.Content),
		PostedOn: formatDate(p.CreatedAt),
	}
	if p.Subject != nil {
		v.SubjectName = p.Subject.Name
	}
	if settings.ShowOwnerEmail && viewer != nil && p.UserID == viewer.ID {
		v.Author = viewer.Email
	}
	return v
}
