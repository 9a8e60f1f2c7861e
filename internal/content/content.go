// Package content ships the content tree the default profile is seeded with.
package content

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/gospelpresentation/backend/internal/models"
)

//go:embed default_gospel.json
var defaultGospelJSON []byte

// DefaultGospelData parses the embedded default presentation. Each call
// returns a fresh tree.
func DefaultGospelData() (models.GospelPresentationData, error) {
	var data models.GospelPresentationData
	if err := json.Unmarshal(defaultGospelJSON, &data); err != nil {
		return nil, fmt.Errorf("parse default gospel data: %w", err)
	}
	return data, nil
}
