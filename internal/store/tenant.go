package store

import "strings"

// Tenant — пара (организация, пользователь), которой скоупится всё состояние:
// persistence-ключ, канал изменений, журнал аудита.
type Tenant struct {
	OrgID  string
	UserID string
}

func (t Tenant) orgOrDefault() string {
	if t.OrgID == "" {
		return "no-org"
	}
	return t.OrgID
}

func (t Tenant) userOrDefault() string {
	if t.UserID == "" {
		return "no-user"
	}
	return t.UserID
}

// Key — каноничный ключ тенанта для реестра инстансов.
func (t Tenant) Key() string {
	return t.orgOrDefault() + ":" + t.userOrDefault()
}

// PersistenceKey — ключ сохранённого снапшота. Пустая строка означает
// "не персистить": без аутентифицированного пользователя состояние живёт
// только в памяти.
func (t Tenant) PersistenceKey(base string) string {
	if t.UserID == "" {
		return ""
	}
	return base + ":" + t.orgOrDefault() + ":" + t.userOrDefault()
}

// Channel — имя канала изменений. Канал общий на организацию: все
// инстансы одной организации видят события друг друга.
func (t Tenant) Channel(prefix string) string {
	return prefix + ":" + t.orgOrDefault()
}

// ParseTenantKey восстанавливает тенанта из persistence-ключа (обратная
// операция к PersistenceKey). Используется worker'ом для обхода тенантов,
// у которых есть сохранённое состояние.
func ParseTenantKey(base, key string) (Tenant, bool) {
	rest, ok := strings.CutPrefix(key, base+":")
	if !ok {
		return Tenant{}, false
	}
	org, user, ok := strings.Cut(rest, ":")
	if !ok || user == "" {
		return Tenant{}, false
	}
	if org == "no-org" {
		org = ""
	}
	return Tenant{OrgID: org, UserID: user}, true
}
