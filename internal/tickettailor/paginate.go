package tickettailor

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/url"

	"example.com/ticketsales/internal/domain"
)

// Collection describes a cursor-paginated endpoint.
type Collection struct {
	// Path of the first page, e.g. "/v1/issued_tickets".
	Path string
	// Params are sent with the first page only; next links carry the full
	// query themselves.
	Params url.Values
	// Kind names the record type in errors.
	Kind string
	// Required lists the key paths every record must carry (see
	// domain.RequireKeys).
	Required []string
}

type page struct {
	Data  []json.RawMessage `json:"data"`
	Links *struct {
		Next *string `json:"next"`
	} `json:"links"`
}

// Paginate returns every record of col across all pages, in server order.
// Each range over the returned sequence starts again from the first page.
// The first failure is yielded with a zero record and ends the sequence.
func Paginate[T any](ctx context.Context, c *Client, col Collection) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		requestURL := c.resolve(col.Path)
		if len(col.Params) > 0 {
			requestURL += "?" + col.Params.Encode()
		}

		for pageNum := 1; requestURL != ""; pageNum++ {
			body, err := c.get(ctx, requestURL)
			if err != nil {
				yield(zero, err)
				return
			}

			var p page
			if err := json.Unmarshal(body, &p); err != nil {
				yield(zero, fmt.Errorf("tickettailor: decode %s page %d: %w", col.Kind, pageNum, err))
				return
			}
			if p.Data == nil {
				yield(zero, &domain.StructuralError{
					Record: fmt.Sprintf("%s page %d", col.Kind, pageNum),
					Fields: []domain.FieldError{{Field: "data", Msg: "required"}},
				})
				return
			}
			c.logger.Debug("fetched page", "kind", col.Kind, "page", pageNum, "records", len(p.Data))

			for _, raw := range p.Data {
				if err := domain.RequireKeys(col.Kind, raw, col.Required...); err != nil {
					yield(zero, err)
					return
				}
				var rec T
				if err := json.Unmarshal(raw, &rec); err != nil {
					yield(zero, fmt.Errorf("tickettailor: decode %s: %w", col.Kind, err))
					return
				}
				if !yield(rec, nil) {
					return
				}
			}

			requestURL = ""
			if p.Links != nil && p.Links.Next != nil && *p.Links.Next != "" {
				requestURL = c.resolve(*p.Links.Next)
			}
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := []T{}
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
