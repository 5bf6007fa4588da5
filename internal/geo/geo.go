// Package geo は地理座標に基づく距離計算とフィルタリングを提供する。
// I/Oを持たない純粋な計算のみで構成する。
package geo

import (
	"math"
	"strings"

	"github.com/hitoshi/ichiba/internal/model"
)

// EarthRadiusKm は距離計算に使う地球の平均半径（km）。
const EarthRadiusKm = 6371.0

// DistanceKm は2点間の大円距離（km）をhaversine公式で計算する。
// 引数は度単位の緯度・経度。
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// WithinRadius は基準点からradiusKm以内にある市場だけを返す。
// 入力の順序を保持する。距離ゼロ（同一地点）は非負の半径すべてに含まれる。
func WithinRadius(originLat, originLon, radiusKm float64, markets []*model.Market) []*model.Market {
	result := make([]*model.Market, 0, len(markets))
	for _, m := range markets {
		if DistanceKm(originLat, originLon, m.Latitude, m.Longitude) <= radiusKm {
			result = append(result, m)
		}
	}
	return result
}

// ContainsFold は大文字小文字を区別しない部分一致を判定する。
// 空のneedleの扱い（全件一致）は呼び出し側の責務とする。
func ContainsFold(field, needle string) bool {
	return strings.Contains(strings.ToLower(field), strings.ToLower(needle))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
