// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/ichiba/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateOAuthLink はOAuthログイン成功時にprovider、provider_id、
	// profile_pictureを更新する。それ以外のフィールドは変更しない。
	UpdateOAuthLink(ctx context.Context, userID, provider, providerID, profilePicture string) error

	// UpdateProfile はプロフィール編集でname、phone_number、
	// profile_pictureを更新する。認証情報には触れない。
	UpdateProfile(ctx context.Context, userID, name, phoneNumber, profilePicture string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。プリンシパルはdataカラムにJSONで保存する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error

	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error

	// CountByUserID は指定ユーザーの有効なセッション数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)

	// DeleteOldestByUserID は指定ユーザーの古いセッションをn件削除する。
	// セッション数上限の超過時に呼ばれる。
	DeleteOldestByUserID(ctx context.Context, userID string, n int) error

	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// MarketRepository は市場データの永続化インターフェース。
type MarketRepository interface {
	// FindByID は指定IDの市場を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Market, error)

	// FindByPlaceID は外部カタログ参照IDで市場を検索する。見つからない場合はnilを返す。
	FindByPlaceID(ctx context.Context, placeID string) (*model.Market, error)

	// ListAll は全市場を名前昇順で返す。
	ListAll(ctx context.Context) ([]*model.Market, error)

	// Create は市場を作成する。座標はこの1回だけ書き込まれる。
	Create(ctx context.Context, market *model.Market) error

	// UpdateContactInfo は外部カタログ同期の結果を反映する。
	// 更新対象はphone_number、website、last_synced_atのみで、
	// 座標や説明文などの登録済みフィールドには触れない。
	UpdateContactInfo(ctx context.Context, marketID, phoneNumber, website string, syncedAt time.Time) error

	// UpdateFavicon は市場ウェブサイトから取得したfaviconを更新する。
	UpdateFavicon(ctx context.Context, marketID string, faviconData []byte, faviconMime string) error

	// ListNeedingSync は外部カタログ参照を持ち、最終同期がolderThanより古い
	// （または一度も同期されていない）市場を返す。
	ListNeedingSync(ctx context.Context, olderThan time.Time) ([]*model.Market, error)

	// CountAll は市場の総数を返す。
	CountAll(ctx context.Context) (int, error)

	// CountCovered は屋根付き市場の数を返す。
	CountCovered(ctx context.Context) (int, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
