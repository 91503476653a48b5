// Входные/выходные модели REST-поверхности шлюза и контракта апстрима.
package models

// LoginRequest — тело POST /session/login и POST /admin/auth/token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate проверяет, что оба поля непустые.
func (r LoginRequest) Validate() error {
	if r.Username == "" || r.Password == "" {
		return ErrValidation
	}

	return nil
}

// RefreshRequest — тело POST /admin/auth/token/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenPair — успешный ответ апстрима на выпуск/обновление токенов.
// Прочие поля ответа апстрима шлюз игнорирует.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Complete сообщает, пришли ли оба токена.
func (p TokenPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// MFAChallenge — ответ 202 апстрима, когда требуется второй фактор.
type MFAChallenge struct {
	MFARequired bool   `json:"mfa_required"`
	MFATx       string `json:"mfa_tx"`
}

// SessionResponse — ответ шлюза клиенту после входа/обновления.
// refresh_token здесь отсутствует намеренно: он живёт только в куке.
type SessionResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"access_token"`
}

// SuccessResponse — ответ без полезной нагрузки (logout).
type SuccessResponse struct {
	Success bool `json:"success"`
}

// RawResponse — обёртка над не-JSON телом апстрима.
type RawResponse struct {
	Success bool   `json:"success"`
	Raw     string `json:"raw"`
}

// DefaultsResponse — подсказки для формы входа.
type DefaultsResponse struct {
	Success         bool   `json:"success"`
	UsernameDefault string `json:"username_default,omitempty"`
	EmailDefault    string `json:"email_default,omitempty"`
}
