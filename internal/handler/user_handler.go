package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/ichiba/internal/middleware"
	"github.com/hitoshi/ichiba/internal/model"
	"github.com/hitoshi/ichiba/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスのインターフェース。
type UserServiceInterface interface {
	GetInfo(ctx context.Context, userID string) (*model.PublicUser, error)
	UpdateProfile(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.PublicUser, error)
}

// UserHandler はユーザープロフィールのHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	Name           string `json:"name"`
	PhoneNumber    string `json:"phoneNumber"`
	ProfilePicture string `json:"profilePicture"`
}

// profileResponse はプロフィール更新の成功レスポンス。
type profileResponse struct {
	User    *model.PublicUser `json:"user"`
	Message string            `json:"message"`
}

// Info はログイン中ユーザーの公開プロフィールを返す。
// GET /user/api/info
func (h *UserHandler) Info(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthenticatedError())
		return
	}

	info, err := h.service.GetInfo(r.Context(), userID)
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// Update はログイン中ユーザーのプロフィールを更新する。
// POST /user/api/update
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthenticatedError())
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewValidationError("Invalid request body"))
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), userID, user.UpdateProfileInput{
		Name:           req.Name,
		PhoneNumber:    req.PhoneNumber,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		middleware.WriteAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		User:    updated,
		Message: "Profile updated successfully",
	})
}
