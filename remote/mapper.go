package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/feedcache/feed"
)

type root struct {
	Items *[]item `json:"items"`
}

type item struct {
	ID          string  `json:"id"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	Image       string  `json:"image"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidData, fmt.Sprintf(format, args...))
}

// Map turns a response into records. Any status other than 200 and any body
// that does not match the wire shape yield ErrInvalidData.
func Map(status int, body []byte) ([]feed.Record, error) {
	if status != http.StatusOK {
		return nil, invalid("status %d", status)
	}
	var r root
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, invalid("decode: %v", err)
	}
	if r.Items == nil {
		return nil, invalid("missing items")
	}

	records := make([]feed.Record, 0, len(*r.Items))
	for i, it := range *r.Items {
		rec, err := it.record()
		if err != nil {
			return nil, invalid("item %d: %v", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (it item) record() (feed.Record, error) {
	id, err := uuid.Parse(it.ID)
	if err != nil {
		return feed.Record{}, fmt.Errorf("id %q: %w", it.ID, err)
	}
	u, err := url.Parse(it.Image)
	if err != nil {
		return feed.Record{}, fmt.Errorf("image: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return feed.Record{}, fmt.Errorf("image %q is not an absolute url", it.Image)
	}
	rec := feed.Record{ID: id, ImageURL: u.String()}
	if it.Description != nil {
		rec.Description = *it.Description
	}
	if it.Location != nil {
		rec.Location = *it.Location
	}
	return rec, nil
}

// Encode renders records in the wire shape Map accepts. Empty optional
// fields are omitted.
func Encode(records []feed.Record) ([]byte, error) {
	items := make([]item, 0, len(records))
	for _, rec := range records {
		it := item{ID: rec.ID.String(), Image: rec.ImageURL}
		if rec.Description != "" {
			d := rec.Description
			it.Description = &d
		}
		if rec.Location != "" {
			l := rec.Location
			it.Location = &l
		}
		items = append(items, it)
	}
	return json.Marshal(root{Items: &items})
}
