package presence

import (
	"math"
	"strconv"

	apperrors "github.com/shiftproof/shiftproof/internal/platform/errors"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distance.
const EarthRadiusMeters = 6_371_000

// Anchor is a site's reference coordinate.
type Anchor struct {
	Lat float64
	Lng float64
}

// ValidateCoordinates rejects out-of-range or non-finite coordinates.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return apperrors.WithMetadata(apperrors.CodeInvalidCoordinates, "coordinates out of range", map[string]string{
			"Lat": strconv.FormatFloat(lat, 'f', -1, 64),
			"Lng": strconv.FormatFloat(lng, 'f', -1, 64),
		})
	}
	return nil
}

// DistanceMeters returns the haversine distance between two points.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}
