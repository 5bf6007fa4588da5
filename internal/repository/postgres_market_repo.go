package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
)

// PostgresMarketRepo はPostgreSQLを使用した市場リポジトリ。
type PostgresMarketRepo struct {
	db *sql.DB
}

// NewPostgresMarketRepo はPostgresMarketRepoを生成する。
func NewPostgresMarketRepo(db *sql.DB) *PostgresMarketRepo {
	return &PostgresMarketRepo{db: db}
}

const marketColumns = `id, COALESCE(place_id, ''), name, address, latitude, longitude,
	COALESCE(opening_time::text, ''), COALESCE(closing_time::text, ''),
	COALESCE(description, ''), COALESCE(specialties, ''), COALESCE(highlights, ''),
	is_covered, COALESCE(crowd_level_morning, ''), COALESCE(crowd_level_afternoon, ''),
	COALESCE(crowd_level_evening, ''), data_source, last_synced_at,
	COALESCE(phone_number, ''), COALESCE(website, ''), favicon_data,
	COALESCE(favicon_mime, ''), created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarket(row rowScanner) (*model.Market, error) {
	m := &model.Market{}
	var openingTime, closingTime string
	var lastSyncedAt sql.NullTime
	err := row.Scan(
		&m.ID, &m.PlaceID, &m.Name, &m.Address, &m.Latitude, &m.Longitude,
		&openingTime, &closingTime,
		&m.Description, &m.Specialties, &m.Highlights,
		&m.IsCovered, &m.CrowdLevelMorning, &m.CrowdLevelAfternoon,
		&m.CrowdLevelEvening, &m.DataSource, &lastSyncedAt,
		&m.PhoneNumber, &m.Website, &m.FaviconData,
		&m.FaviconMime, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if openingTime != "" {
		t, err := model.ParseTimeOfDay(openingTime)
		if err != nil {
			return nil, fmt.Errorf("invalid opening_time for market %s: %w", m.ID, err)
		}
		m.OpeningTime = &t
	}
	if closingTime != "" {
		t, err := model.ParseTimeOfDay(closingTime)
		if err != nil {
			return nil, fmt.Errorf("invalid closing_time for market %s: %w", m.ID, err)
		}
		m.ClosingTime = &t
	}
	if lastSyncedAt.Valid {
		m.LastSyncedAt = &lastSyncedAt.Time
	}
	return m, nil
}

func (r *PostgresMarketRepo) queryMarkets(ctx context.Context, query string, args ...any) ([]*model.Market, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []*model.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// FindByID は指定IDの市場を取得する。見つからない場合はnilを返す。
func (r *PostgresMarketRepo) FindByID(ctx context.Context, id string) (*model.Market, error) {
	m, err := scanMarket(r.db.QueryRowContext(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find market by ID: %w", err)
	}
	return m, nil
}

// FindByPlaceID は外部カタログ参照IDで市場を検索する。見つからない場合はnilを返す。
func (r *PostgresMarketRepo) FindByPlaceID(ctx context.Context, placeID string) (*model.Market, error) {
	m, err := scanMarket(r.db.QueryRowContext(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE place_id = $1`,
		placeID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find market by place ID: %w", err)
	}
	return m, nil
}

// ListAll は全市場を名前昇順で返す。
func (r *PostgresMarketRepo) ListAll(ctx context.Context) ([]*model.Market, error) {
	markets, err := r.queryMarkets(ctx,
		`SELECT `+marketColumns+` FROM markets ORDER BY name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}
	return markets, nil
}

// Create は市場を作成する。座標はこの1回だけ書き込まれる。
func (r *PostgresMarketRepo) Create(ctx context.Context, market *model.Market) error {
	var openingTime, closingTime any
	if market.OpeningTime != nil {
		openingTime = market.OpeningTime.String()
	}
	if market.ClosingTime != nil {
		closingTime = market.ClosingTime.String()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO markets (id, place_id, name, address, latitude, longitude,
		  opening_time, closing_time, description, specialties, highlights, is_covered,
		  crowd_level_morning, crowd_level_afternoon, crowd_level_evening,
		  data_source, last_synced_at, phone_number, website, created_at, updated_at)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7::time, $8::time,
		  NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12,
		  NULLIF($13, ''), NULLIF($14, ''), NULLIF($15, ''),
		  $16, $17, NULLIF($18, ''), NULLIF($19, ''), $20, $21)`,
		market.ID, market.PlaceID, market.Name, market.Address, market.Latitude, market.Longitude,
		openingTime, closingTime, market.Description, market.Specialties, market.Highlights,
		market.IsCovered, string(market.CrowdLevelMorning), string(market.CrowdLevelAfternoon),
		string(market.CrowdLevelEvening), string(market.DataSource), market.LastSyncedAt,
		market.PhoneNumber, market.Website, market.CreatedAt, market.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert market: %w", err)
	}
	return nil
}

// UpdateContactInfo は外部カタログ同期の結果を反映する。
// 更新対象はphone_number、website、last_synced_atのみ。
func (r *PostgresMarketRepo) UpdateContactInfo(ctx context.Context, marketID, phoneNumber, website string, syncedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE markets
		 SET phone_number = NULLIF($2, ''), website = NULLIF($3, ''),
		     last_synced_at = $4, updated_at = now()
		 WHERE id = $1`,
		marketID, phoneNumber, website, syncedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update market contact info: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("market not found: %s", marketID)
	}
	return nil
}

// UpdateFavicon は市場ウェブサイトから取得したfaviconを更新する。
func (r *PostgresMarketRepo) UpdateFavicon(ctx context.Context, marketID string, faviconData []byte, faviconMime string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE markets SET favicon_data = $2, favicon_mime = NULLIF($3, ''), updated_at = now()
		 WHERE id = $1`,
		marketID, faviconData, faviconMime,
	)
	if err != nil {
		return fmt.Errorf("failed to update market favicon: %w", err)
	}
	return nil
}

// ListNeedingSync は外部カタログ参照を持ち、最終同期がolderThanより古い
// （または一度も同期されていない）市場を返す。
func (r *PostgresMarketRepo) ListNeedingSync(ctx context.Context, olderThan time.Time) ([]*model.Market, error) {
	markets, err := r.queryMarkets(ctx,
		`SELECT `+marketColumns+` FROM markets
		 WHERE place_id IS NOT NULL
		   AND (last_synced_at IS NULL OR last_synced_at < $1)
		 ORDER BY last_synced_at ASC NULLS FIRST`,
		olderThan,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets needing sync: %w", err)
	}
	return markets, nil
}

// CountAll は市場の総数を返す。
func (r *PostgresMarketRepo) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM markets`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count markets: %w", err)
	}
	return count, nil
}

// CountCovered は屋根付き市場の数を返す。
func (r *PostgresMarketRepo) CountCovered(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM markets WHERE is_covered`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count covered markets: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ MarketRepository = (*PostgresMarketRepo)(nil)
