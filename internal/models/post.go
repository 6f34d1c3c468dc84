// Package models defines the domain types for inkwell.
package models

import "time"

// Front is the typed header block of a post.
type Front struct {
	Title string    `json:"title"`
	Tags  []string  `json:"tags,omitempty"`
	Draft bool      `json:"draft"`
	Short string    `json:"short,omitempty"`
	Date  time.Time `json:"date"`
}

// Post is one fully parsed content file. A Post is never modified after
// construction; a change on disk produces a new Post that replaces the old
// one, so holders of an older pointer keep a consistent view.
type Post struct {
	Key      string    `json:"key"`
	Front    Front     `json:"front"`
	Title    string    `json:"title"`
	Tags     []string  `json:"tags"`
	Links    []string  `json:"links"`
	HTML     string    `json:"html"`
	Body     string    `json:"-"`
	Raw      string    `json:"raw"`
	Checksum string    `json:"checksum"`
	Hash     uint64    `json:"-"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
}

// PostSummary is the lightweight projection of a Post kept in the index.
type PostSummary struct {
	Key      string    `json:"key"`
	Link     string    `json:"link"`
	Title    string    `json:"title"`
	Short    string    `json:"short,omitempty"`
	Tags     []string  `json:"tags"`
	Draft    bool      `json:"draft"`
	Date     time.Time `json:"date"`
	DateText string    `json:"date_text"`
}
