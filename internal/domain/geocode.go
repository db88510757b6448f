package domain

import (
	"context"
	"log/slog"
)

// Center label sources.
const (
	CenterSourceReverse  = "reverse"
	CenterSourceOriginal = "original"
	CenterSourceFailed   = "failed"
)

// CenterLabel is the density map's initial view center with an optional place name.
type CenterLabel struct {
	Point
	PlaceName        string  `json:"place_name,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	Source           string  `json:"source,omitempty"`
}

// LabelCenter reverse geocodes the map center. A nil geocoder leaves the label
// bare; a failed lookup is logged and the coordinates are kept as-is.
func LabelCenter(ctx context.Context, center Point, geocoder Geocoder, logger *slog.Logger) CenterLabel {
	label := CenterLabel{Point: center}
	if geocoder == nil {
		return label
	}

	result, err := geocoder.ReverseGeocode(ctx, center.Lat, center.Lon)
	if err != nil {
		logger.Warn("reverse geocoding map center failed",
			"lat", center.Lat,
			"lon", center.Lon,
			"error", err,
		)
		label.Source = CenterSourceFailed
		return label
	}
	if result.FormattedAddress == "" {
		label.Source = CenterSourceOriginal
		return label
	}

	label.PlaceName = result.PlaceName
	label.FormattedAddress = result.FormattedAddress
	label.Confidence = result.Confidence
	label.Source = CenterSourceReverse
	return label
}
