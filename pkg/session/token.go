package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// RenewLeeway — за сколько до истечения access-токена начинается обновление.
	RenewLeeway = 60 * time.Second
	// MinRenewDelay — нижняя граница задержки проактивного обновления.
	MinRenewDelay = 5 * time.Second
)

// TokenExpiry читает claim exp из payload access-токена без проверки подписи:
// клиент не владеет ключом, подпись проверяет апстрим. ok=false, если токен
// не JWT или exp отсутствует.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}

// RenewDelay = max(exp - now - RenewLeeway, MinRenewDelay).
func RenewDelay(now, exp time.Time) time.Duration {
	d := exp.Sub(now) - RenewLeeway
	if d < MinRenewDelay {
		return MinRenewDelay
	}

	return d
}
