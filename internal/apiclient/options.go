package apiclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/simp-lee/gymadmin/internal/admin"
)

// LabelFunc builds the option label of a record.
type LabelFunc func(record map[string]any) string

// Options returns an admin.OptionSource listing resource records as
// {id, label} options. The source searches with the API's search parameter.
func (c *Client) Options(resource string, label LabelFunc) admin.OptionSource {
	return &optionSource{client: c, resource: resource, label: label}
}

type optionSource struct {
	client   *Client
	resource string
	label    LabelFunc
}

func (s *optionSource) Options(ctx context.Context, q admin.OptionQuery) (admin.OptionPage, error) {
	req := admin.NewPageRequest(q.PageSize).WithSearch(q.Search).WithPage(q.Page)
	resp, err := s.client.List(ctx, s.resource, req, q.Locale)
	if err != nil {
		return admin.OptionPage{}, err
	}
	if _, err := admin.DecodeEnvelope(resp.Status, resp.Body); err != nil && !errors.Is(err, admin.ErrInvalidResponse) {
		return admin.OptionPage{}, err
	}
	page, err := admin.NormalizePage[map[string]any](resp.Body)
	if err != nil {
		return admin.OptionPage{}, err
	}

	out := admin.OptionPage{
		Options: make([]admin.Option, 0, len(page.Items)),
		HasMore: req.Page*req.PageSize < page.TotalItems,
	}
	for _, rec := range page.Items {
		id, ok := rec["id"]
		if !ok {
			continue
		}
		out.Options = append(out.Options, admin.Option{
			Value: formatID(id),
			Label: s.label(rec),
		})
	}
	return out, nil
}

// formatID renders a JSON id without the float exponent encoding/json uses.
func formatID(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprint(v)
}
