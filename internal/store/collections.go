package store

import "slices"

// Коллекции упорядочены newest-first: вставка всегда в голову.

func insertHead[T any](list []T, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, v)
	return append(out, list...)
}

func indexByID[T any](list []T, id uint64, idOf func(T) uint64) int {
	return slices.IndexFunc(list, func(v T) bool { return idOf(v) == id })
}

func maxID[T any](list []T, idOf func(T) uint64) uint64 {
	var m uint64
	for _, v := range list {
		if idOf(v) > m {
			m = idOf(v)
		}
	}
	return m
}

func replaceAt[T any](list []T, i int, v T) []T {
	out := slices.Clone(list)
	out[i] = v
	return out
}

func removeAt[T any](list []T, i int) []T {
	out := slices.Clone(list)
	return slices.Delete(out, i, i+1)
}

// nextID — локальная монотонная нумерация: max(existing)+1. Для пустой
// коллекции — случайный положительный fallback. Нумерация уникальна только
// внутри коллекции одного тенанта; два инстанса, не увидевшие broadcast друг
// друга, могут легально выдать один id двум разным новым записям (см.
// open question в DESIGN.md).
func (s *Store) nextID(max uint64, n int) uint64 {
	if n == 0 {
		return s.randID()
	}
	return max + 1
}
