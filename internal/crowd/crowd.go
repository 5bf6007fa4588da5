// Package crowd は時間帯区分・混雑度・営業状態の計算を提供する。
// すべての計算は明示的な基準時刻を受け取り、内部で現在時刻を読まない。
package crowd

import "github.com/hitoshi/ichiba/internal/model"

// 時間帯の境界。
var (
	morningStart   = model.NewTimeOfDay(6, 0)
	afternoonStart = model.NewTimeOfDay(12, 0)
	eveningStart   = model.NewTimeOfDay(18, 0)
)

// BucketFor は時刻が属する時間帯区分を返す。
// MORNING [06:00, 12:00)、AFTERNOON [12:00, 18:00)、それ以外はEVENING。
func BucketFor(t model.TimeOfDay) model.TimeBucket {
	switch {
	case t >= morningStart && t < afternoonStart:
		return model.BucketMorning
	case t >= afternoonStart && t < eveningStart:
		return model.BucketAfternoon
	default:
		return model.BucketEvening
	}
}

// StoredLevelFor は市場の指定時間帯に保存されている混雑度をそのまま返す。
// 未設定の場合は空文字列を返す。既定値が必要な場合はLevelForを使う。
func StoredLevelFor(m *model.Market, bucket model.TimeBucket) model.CrowdLevel {
	switch bucket {
	case model.BucketMorning:
		return m.CrowdLevelMorning
	case model.BucketAfternoon:
		return m.CrowdLevelAfternoon
	default:
		return m.CrowdLevelEvening
	}
}

// LevelFor は市場の指定時間帯の混雑度を返す。
// 未設定の場合は朝・昼はMEDIUM、夜はLOWを既定値とする。
func LevelFor(m *model.Market, bucket model.TimeBucket) model.CrowdLevel {
	if stored := StoredLevelFor(m, bucket); stored != "" {
		return stored
	}
	if bucket == model.BucketEvening {
		return model.CrowdLevelLow
	}
	return model.CrowdLevelMedium
}

// IsOpenAt は市場が指定時刻に営業中かどうかを返す。
// 開店・閉店時刻のどちらかが未設定の場合は判定不能としてnilを返す。
// 閉店時刻が開店時刻より早い場合は日またぎ営業とみなす。
// 開店・閉店の境界時刻ちょうどは閉店扱い。
func IsOpenAt(m *model.Market, t model.TimeOfDay) *bool {
	if m.OpeningTime == nil || m.ClosingTime == nil {
		return nil
	}
	opening := *m.OpeningTime
	closing := *m.ClosingTime

	var open bool
	if closing < opening {
		// 日またぎ: 例 20:00開店 04:00閉店
		open = t > opening || t < closing
	} else {
		open = t > opening && t < closing
	}
	return &open
}
