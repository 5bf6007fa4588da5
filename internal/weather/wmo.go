// Package weather はOpen-Meteo APIのプロキシと天気コードの解釈を提供する。
package weather

// wmoDescriptions はWMO天気コードから表示用ラベルへの対応表。
var wmoDescriptions = map[int]string{
	0:  "Clear",
	1:  "Mostly Clear",
	2:  "Partly Cloudy",
	3:  "Cloudy",
	45: "Foggy",
	48: "Foggy",
	51: "Light Rain",
	53: "Light Rain",
	55: "Light Rain",
	56: "Freezing Drizzle",
	57: "Freezing Drizzle",
	61: "Rain",
	63: "Rain",
	65: "Rain",
	66: "Freezing Rain",
	67: "Freezing Rain",
	71: "Snow",
	73: "Snow",
	75: "Snow",
	77: "Snow Grains",
	80: "Showers",
	81: "Showers",
	82: "Showers",
	85: "Snow Showers",
	86: "Snow Showers",
	95: "Thunderstorm",
	96: "Thunderstorm with Hail",
	99: "Thunderstorm with Hail",
}

// DescribeCode はWMO天気コードを表示用ラベルに変換する。
// 対応表にないコードは"Unknown"を返す。
func DescribeCode(code int) string {
	if desc, ok := wmoDescriptions[code]; ok {
		return desc
	}
	return "Unknown"
}
