package store

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/firemap/internal/model"
)

// recordPath composes the absolute remote path for a record:
// base / group-prefix / model-name / id, skipping empty segments.
//
// Segments are NFC-normalized so unicode ids and group names index the
// same tree slot regardless of the caller's composition form.
func (c *Config) recordPath(desc *model.Descriptor, id string) string {
	segments := make([]string, 0, 4)
	if c.BasePath != "" {
		segments = append(segments, c.BasePath)
	}
	if desc.Group != "" {
		if prefix, ok := c.GroupPaths[desc.Group]; ok && prefix != "" {
			segments = append(segments, prefix)
		}
	}
	segments = append(segments, desc.Name, id)

	for i, s := range segments {
		segments[i] = norm.NFC.String(strings.Trim(s, "/"))
	}
	return strings.Join(segments, "/")
}
