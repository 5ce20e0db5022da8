package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/meeting-finder/internal/application"
	"github.com/example/meeting-finder/internal/calendar"
)

var (
	errBadRequestBody       = errors.New("無効なリクエスト形式です。")
	errInvalidCaseID        = errors.New("無効な案件 ID です。")
	errInvalidTime          = errors.New("日時は RFC3339 形式で指定してください。")
	errInvalidDays          = errors.New("検索日数は整数で指定してください。")
	errMissingAPIKey        = errors.New("認証トークンを指定してください")
	errInvalidAPIKey        = errors.New("認証トークンが無効です。")
	errDomainNotAllowed     = errors.New("このドメインのアカウントは利用できません。")
	errMissingCalendarToken = errors.New("カレンダーのアクセストークンを指定してください。")
	errNoSlots              = errors.New("候補日時が見つかりません。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrAccessDenied):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "CASE_FORBIDDEN",
			Message:   "この操作を実行する権限がありません。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定された案件が見つかりません。"})
	case errors.Is(err, calendar.ErrNoCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "CALENDAR_TOKEN_REQUIRED",
			Message:   errMissingCalendarToken.Error(),
		})
	case errors.Is(err, application.ErrExternalService):
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: "CALENDAR_UNAVAILABLE",
			Message:   "カレンダーサービスとの通信に失敗しました。",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			details := localizeValidationErrors(vErr)
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  details,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusBadGateway:
		return "カレンダーサービスとの通信に失敗しました。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "name must be 200 characters or fewer":
		return "案件名は 200 文字以内で指定してください。"
	case "duration must be positive":
		return "所要時間は正の整数で指定してください。"
	case "duration must fit within working hours":
		return "所要時間が就業時間に収まりません。"
	case "buffer must not be negative":
		return "バッファは 0 以上で指定してください。"
	case "max slots must be positive":
		return "候補数は正の整数で指定してください。"
	case "members must be calendar identifiers":
		return "参加者にはカレンダー ID を指定してください。"
	case "confirmed cases cannot take provisional holds":
		return "確定済みの案件には仮押さえを作成できません。"
	case "case is already confirmed":
		return "この案件は既に確定しています。"
	case "at least one slot is required":
		return "少なくとも 1 つの候補日時を指定してください。"
	case "start and end are required":
		return "開始日時と終了日時は必須です。"
	case "start must be before end":
		return "終了日時は開始日時より後である必要があります。"
	case "from must not be after to":
		return "期間の開始は終了より前である必要があります。"
	case "case record violates storage constraints":
		return "案件データが保存条件を満たしていません。"
	default:
		if strings.HasPrefix(message, "days must be between 1 and ") {
			return "検索日数は 1 から " + strings.TrimPrefix(message, "days must be between 1 and ") + " の間で指定してください。"
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
