package models

// FailedContentPlaceholder replaces the content of a record whose detail
// fetch could not be completed
const FailedContentPlaceholder = "Failed to fetch content"

// LinkReference points at a listing item discovered on a search page.
// Its position in the containing slice defines the output order.
type LinkReference struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	AuthorStub string `json:"author"`
}

// DetailRecord is a fully materialized content item.
// Link is the identity key.
type DetailRecord struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Author     string   `json:"author"`
	AuthorDesc string   `json:"authorDesc,omitempty"`
	Link       string   `json:"link"`
	Likes      int      `json:"likes,omitempty"`
	Collects   int      `json:"collects,omitempty"`
	Comments   int      `json:"comments,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Images     []string `json:"images,omitempty"`
}

// NewDegradedRecord builds the record used when a detail fetch fails.
// Only the values already known from the listing are populated.
func NewDegradedRecord(ref LinkReference) DetailRecord {
	return DetailRecord{
		Title:   ref.Title,
		Content: FailedContentPlaceholder,
		Author:  ref.AuthorStub,
		Link:    ref.URL,
	}
}

// IsDegraded reports whether the record is a failed-fetch placeholder
func (r DetailRecord) IsDegraded() bool {
	return r.Content == FailedContentPlaceholder
}
