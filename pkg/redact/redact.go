// redact предоставляет утилиты безопасного редактирования чувствительных
// данных для логов (логины, токены, пароли). Цель — исключить утечки секретов,
// сохранив при этом полезный для отладки контекст.
package redact

import "strings"

// Email маскирует e-mail для логирования.
//
// Правила:
//   - строка должна содержать РОВНО один '@', иначе возвращается "***";
//   - локальная часть заменяется на первые два символа (по рунам) + "***";
//   - если локальная часть ≤ 2 символов — возвращается "***@<domain>".
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	return prefix(local) + "@" + domain
}

// Username маскирует логин администратора. Логины-e-mail маскируются как Email,
// прочие — первые два символа + "***".
func Username(s string) string {
	if strings.Contains(s, "@") {
		return Email(s)
	}

	return prefix(s)
}

func prefix(s string) string {
	r := []rune(s)
	if len(r) > 2 {
		return string(r[:2]) + "***"
	}

	return "***"
}

// Token возвращает литерал-заглушку для токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }

// Password возвращает литерал-заглушку для пароля в логах.
func Password() string { return "[REDACTED_PASSWORD]" }
