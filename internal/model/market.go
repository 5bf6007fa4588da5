// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
	"time"
)

// CrowdLevel は時間帯ごとの混雑度を表す。
type CrowdLevel string

const (
	// CrowdLevelLow は混雑度「低」。
	CrowdLevelLow CrowdLevel = "LOW"
	// CrowdLevelMedium は混雑度「中」。
	CrowdLevelMedium CrowdLevel = "MEDIUM"
	// CrowdLevelHigh は混雑度「高」。
	CrowdLevelHigh CrowdLevel = "HIGH"
)

// ParseCrowdLevel は文字列をCrowdLevelに変換する。大文字小文字を区別しない。
// 未知の値の場合はエラーを返す。
func ParseCrowdLevel(s string) (CrowdLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return CrowdLevelLow, nil
	case "MEDIUM":
		return CrowdLevelMedium, nil
	case "HIGH":
		return CrowdLevelHigh, nil
	default:
		return "", fmt.Errorf("unknown crowd level: %q", s)
	}
}

// TimeBucket は1日を3分割した時間帯区分を表す。
type TimeBucket string

const (
	// BucketMorning は朝の時間帯 [06:00, 12:00)。
	BucketMorning TimeBucket = "MORNING"
	// BucketAfternoon は昼の時間帯 [12:00, 18:00)。
	BucketAfternoon TimeBucket = "AFTERNOON"
	// BucketEvening は夜の時間帯（朝・昼以外のすべて）。
	BucketEvening TimeBucket = "EVENING"
)

// ParseTimeBucket は文字列をTimeBucketに変換する。大文字小文字を区別しない。
func ParseTimeBucket(s string) (TimeBucket, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MORNING":
		return BucketMorning, nil
	case "AFTERNOON":
		return BucketAfternoon, nil
	case "EVENING":
		return BucketEvening, nil
	default:
		return "", fmt.Errorf("unknown time bucket: %q", s)
	}
}

// DataSource は市場データの出所を表す。
type DataSource string

const (
	// DataSourceLocal は自治体が登録したローカルデータのみを示す。
	DataSourceLocal DataSource = "LOCAL"
	// DataSourceExternal は外部カタログからのインポートデータのみを示す。
	DataSourceExternal DataSource = "EXTERNAL"
	// DataSourceHybrid はローカルデータを外部カタログで補完したデータを示す。
	DataSourceHybrid DataSource = "HYBRID"
)

// TimeOfDay は時刻（時:分）を0時からの経過分数で表す。
// 日付やタイムゾーンを持たない純粋な時刻として開店・閉店時刻の比較に使用する。
type TimeOfDay int

// NewTimeOfDay は時と分からTimeOfDayを生成する。
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay は "15:04" または "15:04:05" 形式の文字列をTimeOfDayに変換する。
// 秒は切り捨てる。PostgreSQLのTIME型の文字列表現も受け付ける。
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hour, minute, second int
	if n, err := fmt.Sscanf(s, "%d:%d:%d", &hour, &minute, &second); err != nil || n < 2 {
		if _, err2 := fmt.Sscanf(s, "%d:%d", &hour, &minute); err2 != nil {
			return 0, fmt.Errorf("invalid time of day: %q", s)
		}
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time of day out of range: %q", s)
	}
	return NewTimeOfDay(hour, minute), nil
}

// TimeOfDayFromClock はtime.Timeから時:分のみを取り出してTimeOfDayに変換する。
func TimeOfDayFromClock(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// Hour は時の部分を返す。
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute は分の部分を返す。
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String は "15:04" 形式の文字列を返す。
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalJSON は "15:04" 形式のJSON文字列として出力する。
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// Market は自治体管轄の市場を表す。
// 緯度・経度はDB側でNUMERIC型として保持し、作成時に1回だけ書き込まれる。
// 外部カタログ同期は電話番号・ウェブサイト・同期日時（およびfavicon）のみを更新し、
// 座標や説明文などの登録済みフィールドを上書きすることはない。
type Market struct {
	ID          string
	PlaceID     string // 外部カタログの参照ID。未連携の場合は空。
	Name        string
	Address     string
	Latitude    float64
	Longitude   float64
	OpeningTime *TimeOfDay
	ClosingTime *TimeOfDay
	Description string
	Specialties string
	Highlights  string
	IsCovered   bool

	// 時間帯別の混雑度。未設定（""）の場合の既定値の解決はcrowdパッケージが行う。
	CrowdLevelMorning   CrowdLevel
	CrowdLevelAfternoon CrowdLevel
	CrowdLevelEvening   CrowdLevel

	DataSource   DataSource
	LastSyncedAt *time.Time
	PhoneNumber  string
	Website      string

	// 市場ウェブサイトから取得したfavicon。取得失敗時はnil。
	FaviconData []byte
	FaviconMime string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate は市場の必須フィールドと座標範囲を検証する。
// 作成・インポート経路で呼び出す。
func (m *Market) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("market name is required")
	}
	if strings.TrimSpace(m.Address) == "" {
		return fmt.Errorf("market address is required")
	}
	if m.Latitude < -90 || m.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %f", m.Latitude)
	}
	if m.Longitude < -180 || m.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %f", m.Longitude)
	}
	return nil
}
